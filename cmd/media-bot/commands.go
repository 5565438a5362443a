package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"media-bot/internal/download"
	"media-bot/internal/mode"
)

func newModesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "modes",
		Short: "List the download modes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "MODE\tKIND\tDESCRIPTION")
			for _, p := range mode.All() {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", p.Mode, p.Kind, p.Label)
			}
			return tw.Flush()
		},
	}
}

// newFetchCmd downloads a single URL without Telegram, for checking that the
// extractor and a preset work on a host.
func newFetchCmd() *cobra.Command {
	opts := download.Options{Dir: "downloads"}

	cmd := &cobra.Command{
		Use:   "fetch <url> <mode>",
		Short: "Download one URL with a mode preset and print the file path",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !download.IsHTTPURL(args[0]) {
				return fmt.Errorf("not an http(s) URL: %q", args[0])
			}
			p, err := mode.Resolve(args[1])
			if err != nil {
				return fmt.Errorf("%w (available: %s)", err, mode.Tokens(", "))
			}
			f, err := download.New(opts)
			if err != nil {
				return err
			}
			art, err := f.Fetch(cmd.Context(), args[0], p)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", art.Path, humanize.IBytes(uint64(art.Size)))
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.Dir, "dir", opts.Dir, "directory to download into")
	flags.StringVar(&opts.Executable, "ytdlp", "yt-dlp", "yt-dlp executable")
	flags.StringVar(&opts.CookiesFile, "cookies", "", "Netscape cookies file passed to yt-dlp")
	flags.BoolVar(&opts.ForceIPv4, "force-ipv4", false, "make all connections via IPv4")
	return cmd
}
