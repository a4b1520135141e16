package cmd

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/smazurov/pixelnode/internal/client"
	"github.com/smazurov/pixelnode/internal/dispatch"
	"github.com/spf13/cobra"
)

// CreateClientCmd creates the client command.
func CreateClientCmd() *cobra.Command {
	var port int
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "client <host> [mode1|mode2|mode3|stop|off|status]",
		Short: "Send commands to a pixelnode server",
		Long: `Sends one command to the pixelnode command server and prints the JSON reply. ` +
			`Without a command it reads commands interactively until quit or exit.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(c *cobra.Command, args []string) error {
			cl := client.New(client.Addr(args[0], port), timeout)
			defer cl.Close()

			if len(args) == 2 {
				command, err := client.ParseShorthand(args[1])
				if err != nil {
					return err
				}
				printResponse(c.OutOrStdout(), send(c.Context(), cl, command))
				return nil
			}

			fmt.Fprintf(c.OutOrStdout(), "pixelnode client - %s\n", client.Addr(args[0], port))
			fmt.Fprintln(c.OutOrStdout(), "Commands: mode1, mode2, mode3, stop, off, status, quit")
			return runInteractive(c.Context(), cl, c.InOrStdin(), c.OutOrStdout())
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", client.DefaultPort, "Command server port")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "Per-request timeout")
	return cmd
}

func runInteractive(ctx context.Context, cl *client.Client, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}

		line := strings.ToLower(strings.TrimSpace(scanner.Text()))
		switch line {
		case "":
			continue
		case "quit", "exit":
			return nil
		}

		command, err := client.ParseShorthand(line)
		if err != nil {
			fmt.Fprintln(out, "Unknown command.")
			continue
		}
		printResponse(out, send(ctx, cl, command))
	}
}

// send reports transport failures in the wire error shape.
func send(ctx context.Context, cl *client.Client, command dispatch.Command) dispatch.Response {
	if ctx == nil {
		ctx = context.Background()
	}
	resp, err := cl.Do(ctx, command)
	if err != nil {
		return client.ErrorResponse(err)
	}
	return resp
}

func printResponse(out io.Writer, v dispatch.Response) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "encode response: %v\n", err)
		return
	}
	fmt.Fprintln(out, string(data))
}
