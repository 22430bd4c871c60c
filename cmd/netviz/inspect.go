package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dimalipin/netviz/internal/ipheader"
	"github.com/dimalipin/netviz/internal/nbi"
)

func newInspectCmd(a *app) *cobra.Command {
	var live bool
	cmd := &cobra.Command{
		Use:   "inspect [field]",
		Short: "Explain the fields of an IPv4 header",
		Long: `
Without an argument, list every IPv4 header field with its position. With a
field key, print its description and example values.

Examples:
  netviz inspect              # field overview
  netviz inspect ttl          # one field in detail
  netviz inspect --live       # decode the header of a freshly sent packet
`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			var header []byte
			if live {
				h, err := a.liveHeader(cmd)
				if err != nil {
					return err
				}
				header = h
			}
			if len(args) == 0 {
				return printFieldTable(out, header)
			}
			desc, err := nbi.DescribeHeaderField(header, args[0])
			if err != nil {
				return err
			}
			return printField(out, desc)
		},
	}
	cmd.Flags().BoolVar(&live, "live", false, "send a random packet and show its header values")
	return cmd
}

// liveHeader sends one random packet over the configured topology and
// returns its encoded header.
func (a *app) liveHeader(cmd *cobra.Command) ([]byte, error) {
	store, _, err := a.loadTopology()
	if err != nil {
		return nil, err
	}
	sim := a.newSimulation(store, 0)
	sent, err := sim.SendRandom(cmd.Context())
	if err != nil {
		return nil, err
	}
	if !sent {
		return nil, fmt.Errorf("topology has fewer than two hosts")
	}
	r := sim.Run()
	fmt.Fprintf(cmd.OutOrStdout(), "packet %s → %s\n\n", r.Packet.SrcIP, r.Packet.DstIP)
	return sim.Header(), nil
}

func printFieldTable(out io.Writer, header []byte) error {
	var values map[string]ipheader.Value
	if len(header) > 0 {
		decoded, err := ipheader.Describe(header)
		if err != nil {
			return err
		}
		values = make(map[string]ipheader.Value, len(decoded))
		for _, v := range decoded {
			values[v.Key] = v
		}
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	if values != nil {
		fmt.Fprintln(tw, "KEY\tFIELD\tBITS\tVALUE")
	} else {
		fmt.Fprintln(tw, "KEY\tFIELD\tBITS")
	}
	for _, f := range ipheader.Fields() {
		bits := fmt.Sprintf("%d-%d", f.BitOffset, f.BitOffset+f.BitWidth-1)
		if f.BitWidth == 0 {
			bits = fmt.Sprintf("%d+", f.BitOffset)
		}
		if values == nil {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", f.Key, f.Title, bits)
			continue
		}
		v := values[f.Key]
		value := v.Value
		if v.Label != "" {
			value = fmt.Sprintf("%s (%s)", v.Value, v.Label)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", f.Key, f.Title, bits, value)
	}
	return tw.Flush()
}

func printField(out io.Writer, desc nbi.FieldDescription) error {
	f := desc.Field
	fmt.Fprintf(out, "%s\n\n%s\n", f.Title, f.Description)
	if desc.Live != nil {
		fmt.Fprintf(out, "\nLive value: %s", desc.Live.Value)
		if desc.Live.Label != "" {
			fmt.Fprintf(out, " (%s)", desc.Live.Label)
		}
		fmt.Fprintln(out)
	}
	if len(f.Examples) == 0 {
		return nil
	}
	fmt.Fprintln(out, "\nExamples:")
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for _, ex := range f.Examples {
		fmt.Fprintf(tw, "  %s\t%s\t%s\n", ex.Value, ex.Label, ex.Description)
	}
	return tw.Flush()
}
