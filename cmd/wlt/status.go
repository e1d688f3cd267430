package main

import (
	"fmt"
	"io"

	"deedles.dev/wlt/internal/ipc"
	"github.com/spf13/cobra"
)

func statusCmd() *cobra.Command {
	var (
		watch  bool
		socket string
	)

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show workspaces and the focused window",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := ipc.Dial(socket)
			if err != nil {
				return err
			}
			defer c.Close()

			out := cmd.OutOrStdout()
			if !watch {
				st, err := c.GetState()
				if err != nil {
					return err
				}
				printState(out, st)
				return nil
			}

			return c.Subscribe(func(msg ipc.Message) bool {
				printEvent(out, msg)
				return cmd.Context().Err() == nil
			})
		},
	}

	flags := cmd.Flags()
	flags.BoolVarP(&watch, "watch", "w", false, "print every change until interrupted")
	flags.StringVar(&socket, "socket", ipc.SocketPath(), "IPC socket of the compositor")

	return cmd
}

func printState(w io.Writer, st ipc.State) {
	for _, ws := range st.Workspaces {
		mark := " "
		if ws.ID == st.ActiveWorkspace {
			mark = "*"
		}
		fmt.Fprintf(w, "%v %v\t%v windows\n", mark, ws.Name, ws.WindowCount)
	}
	if st.FocusedWindow != "" {
		fmt.Fprintf(w, "focused: %v\n", st.FocusedWindow)
	}
}

func printEvent(w io.Writer, msg ipc.Message) {
	switch msg.Type {
	case ipc.TypeState:
		printState(w, msg.State())
	case ipc.TypeWorkspace:
		fmt.Fprintf(w, "workspace %v\n", msg.ActiveWorkspace)
	case ipc.TypeFocus, ipc.TypeTitle:
		var title string
		if msg.FocusedWindow != nil {
			title = *msg.FocusedWindow
		}
		fmt.Fprintf(w, "%v: %q\n", msg.Type, title)
	case ipc.TypeError:
		fmt.Fprintf(w, "error: %v\n", msg.Error)
	}
}
