package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"vmstore/pkg/config"
	"vmstore/pkg/protocol"
	"vmstore/pkg/shared"
	"vmstore/pkg/types"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"
)

type clientOptions struct {
	controller string
	output     string
}

// resolve layers command-line flags over the saved client profile.
func (o *clientOptions) resolve() (*config.ClientConfig, error) {
	cfg, err := config.LoadClientConfig()
	if err != nil {
		return nil, err
	}
	if o.controller != "" {
		cfg.ControllerAddress = o.controller
	}
	if o.output != "" {
		cfg.OutputFormat = o.output
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

type controllerSession struct {
	cfg    *config.ClientConfig
	conn   *grpc.ClientConn
	client protocol.StorageControllerClient
}

func (o *clientOptions) connect() (*controllerSession, error) {
	cfg, err := o.resolve()
	if err != nil {
		return nil, err
	}
	conn, err := shared.ConnectToController(cfg.ControllerAddress, cfg.Timeout.Std(), 0)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to controller: %w", err)
	}
	return &controllerSession{
		cfg:    cfg,
		conn:   conn,
		client: protocol.NewStorageControllerClient(conn),
	}, nil
}

func (s *controllerSession) context() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.cfg.Timeout.Std())
}

func (s *controllerSession) Close() {
	s.conn.Close()
}

func clientCmd() *cobra.Command {
	opts := &clientOptions{}

	cmd := &cobra.Command{
		Use:   "client",
		Short: "Query and manage the controller directory",
	}

	cmd.PersistentFlags().StringVar(&opts.controller, "controller", "", "controller address (defaults to the client profile)")
	cmd.PersistentFlags().StringVarP(&opts.output, "output", "o", "", "output format: styled, json or plain")

	cmd.AddCommand(
		listCmd(opts),
		locateCmd(opts),
		statusCmd(opts),
		deleteCmd(opts),
		useCmd(opts),
	)

	return cmd
}

func listCmd(opts *clientOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List files visible on the cloud",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.connect()
			if err != nil {
				return err
			}
			defer s.Close()

			ctx, cancel := s.context()
			defer cancel()
			list, err := s.client.ListFiles(ctx, &protocol.NodeInfo{})
			if err != nil {
				return fmt.Errorf("failed to list files: %w", err)
			}

			w := cmd.OutOrStdout()
			switch s.cfg.OutputFormat {
			case config.OutputJSON:
				return writeJSON(w, list.Filenames)
			default:
				if len(list.Filenames) == 0 {
					fmt.Fprintln(w, "Files on cloud: None")
					return nil
				}
				fmt.Fprintf(w, "Files on cloud: %s\n", strings.Join(list.Filenames, ", "))
			}
			return nil
		},
	}
}

func locateCmd(opts *clientOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "locate <filename>",
		Short: "Show the online nodes holding a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.connect()
			if err != nil {
				return err
			}
			defer s.Close()

			row, err := locate(s, args[0])
			if err != nil {
				return err
			}
			return writeFiles(cmd.OutOrStdout(), s.cfg.OutputFormat, []fileRow{row})
		},
	}
}

func statusCmd(opts *clientOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show every visible file and where it lives",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.connect()
			if err != nil {
				return err
			}
			defer s.Close()

			ctx, cancel := s.context()
			list, err := s.client.ListFiles(ctx, &protocol.NodeInfo{})
			cancel()
			if err != nil {
				return fmt.Errorf("failed to list files: %w", err)
			}

			rows := make([]fileRow, 0, len(list.Filenames))
			for _, name := range list.Filenames {
				row, err := locate(s, name)
				if err != nil {
					return err
				}
				// The owner may have gone offline between the two calls.
				if len(row.Owners) > 0 {
					rows = append(rows, row)
				}
			}

			w := cmd.OutOrStdout()
			if s.cfg.OutputFormat == config.OutputStyled {
				fmt.Fprintln(w, titleStyle.Render(fmt.Sprintf("vmstore @ %s", s.cfg.ControllerAddress)))
			}
			return writeFiles(w, s.cfg.OutputFormat, rows)
		},
	}
}

func deleteCmd(opts *clientOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <filename>",
		Short: "Remove a file from the directory (nodes keep their copies)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.connect()
			if err != nil {
				return err
			}
			defer s.Close()

			ctx, cancel := s.context()
			defer cancel()
			resp, err := s.client.DeleteFile(ctx, &protocol.FileName{Filename: args[0]})
			if err != nil {
				return fmt.Errorf("failed to delete %s: %w", args[0], err)
			}
			if !resp.OK() {
				return fmt.Errorf("%s", resp.Message)
			}
			fmt.Fprintln(cmd.OutOrStdout(), resp.Message)
			return nil
		},
	}
}

func useCmd(opts *clientOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "use <controller-address>",
		Short: "Save the default controller address in the client profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadClientConfig()
			if err != nil {
				return err
			}
			cfg.ControllerAddress = args[0]
			if opts.output != "" {
				cfg.OutputFormat = opts.output
			}
			if err := cfg.Save(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved controller %s to %s\n", cfg.ControllerAddress, config.GetClientConfigPath())
			return nil
		},
	}
}

func locate(s *controllerSession, name string) (fileRow, error) {
	ctx, cancel := s.context()
	defer cancel()

	list, err := s.client.GetFileLocations(ctx, &protocol.FileName{Filename: name})
	if err != nil {
		return fileRow{}, fmt.Errorf("failed to locate %s: %w", name, err)
	}

	row := fileRow{Name: name, Owners: make([]types.Location, 0, len(list.Nodes))}
	for _, n := range list.Nodes {
		row.Owners = append(row.Owners, types.Location{
			NodeID:  types.NodeID(n.Id),
			Address: n.Address,
			Port:    int(n.Port),
		})
	}
	return row, nil
}

func writeFiles(w io.Writer, format string, rows []fileRow) error {
	switch format {
	case config.OutputJSON:
		return writeJSON(w, rows)
	case config.OutputPlain:
		for _, r := range rows {
			owners := make([]string, 0, len(r.Owners))
			for _, o := range r.Owners {
				owners = append(owners, fmt.Sprintf("%s@%s", o.NodeID, o.Endpoint()))
			}
			if len(owners) == 0 {
				owners = append(owners, "-")
			}
			fmt.Fprintf(w, "%s\t%s\n", r.Name, strings.Join(owners, ","))
		}
		return nil
	default:
		if len(rows) == 1 && len(rows[0].Owners) == 0 {
			fmt.Fprintln(w, warnStyle.Render(fmt.Sprintf("No node has %s.", rows[0].Name)))
			return nil
		}
		fmt.Fprintln(w, renderFilesTable(rows))
		return nil
	}
}

func writeJSON(w io.Writer, v interface{}) error {
	if w == nil {
		w = os.Stdout
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
