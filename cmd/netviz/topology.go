package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dimalipin/netviz/core"
	"github.com/dimalipin/netviz/kb"
	"github.com/dimalipin/netviz/model"
)

type topologyView struct {
	Subnets  []model.Subnet  `json:"subnets"`
	Hosts    []model.Host    `json:"hosts"`
	Gateways []model.Gateway `json:"gateways"`
	WANLink  *model.WANLink  `json:"wan_link,omitempty"`
}

func newTopologyCmd(a *app) *cobra.Command {
	var (
		asJSON bool
		path   []string
	)
	cmd := &cobra.Command{
		Use:   "topology",
		Short: "Print the configured topology and routing tables",
		Long: `
Print the subnets, hosts, gateway routing tables and WAN link of the
configured topology, or the waypoints a packet visits between two hosts.

Examples:
  netviz topology                                  # text overview
  netviz topology --json                           # machine readable
  netviz topology --path 192.168.1.10,192.168.2.11 # waypoints of one send
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, _, err := a.loadTopology()
			if err != nil {
				return err
			}
			if len(path) > 0 {
				if len(path) != 2 {
					return fmt.Errorf("--path takes exactly two host addresses, got %d", len(path))
				}
				waypoints, err := core.NewPathPlanner(store).PlanPathByIP(path[0], path[1])
				if err != nil {
					return err
				}
				if asJSON {
					enc := json.NewEncoder(cmd.OutOrStdout())
					enc.SetIndent("", "  ")
					return enc.Encode(waypoints)
				}
				return printPath(cmd.OutOrStdout(), waypoints)
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(viewOf(store))
			}
			return printTopology(cmd.OutOrStdout(), viewOf(store))
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the topology as JSON")
	cmd.Flags().StringSliceVar(&path, "path", nil, "plan the path between two hosts (SRC,DST)")
	return cmd
}

func viewOf(store *kb.KnowledgeBase) topologyView {
	v := topologyView{
		Subnets:  store.Subnets(),
		Hosts:    store.Hosts(),
		Gateways: store.Gateways(),
	}
	if wan, ok := store.WANLink(); ok {
		v.WANLink = &wan
	}
	return v
}

func printTopology(out io.Writer, v topologyView) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for _, sub := range v.Subnets {
		fmt.Fprintf(tw, "%s\t%s\tmask %s\n", sub.Name, sub.Network, sub.Mask)
		for _, h := range v.Hosts {
			if h.Subnet == sub.Network {
				fmt.Fprintf(tw, "  host\t%s\tgw %s\n", h.IP, h.Gateway)
			}
		}
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	for _, gw := range v.Gateways {
		fmt.Fprintf(out, "\n%s (LAN %s, WAN %s)\n", gw.Name, gw.LANIP, gw.WANIP)
		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "  DESTINATION\tNEXT HOP\tINTERFACE")
		for _, r := range gw.RoutingTable {
			fmt.Fprintf(tw, "  %s\t%s\t%s\n", r.Destination, r.NextHop, r.Interface)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}

	if v.WANLink != nil {
		fmt.Fprintf(out, "\n%s (%s)\n", v.WANLink.Label, v.WANLink.Endpoints)
	}
	return nil
}

func printPath(out io.Writer, waypoints []model.Waypoint) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tWAYPOINT\tPOSITION\tACTION")
	for i, wp := range waypoints {
		action := "-"
		if wp.IsRoutingPoint() {
			action = "route (TTL-1)"
		}
		fmt.Fprintf(tw, "%d\t%s\t(%.0f, %.0f)\t%s\n", i, wp.Label, wp.Position.X, wp.Position.Y, action)
	}
	return tw.Flush()
}
