package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"vmstore/pkg/node"
	"vmstore/pkg/storage"
	"vmstore/pkg/types"
	"vmstore/pkg/utils"
)

const shellHelp = `
create <filename>      - Create a new text file
modify <filename>      - Modify an existing text file
delete <filename>      - Delete a text file
upload <filename>      - Upload (announce) a file to the controller
download <filename>    - Download a file from another node
list                   - List files on the cloud/controller
ls                     - List files created or downloaded on this node
ghosts                 - List placeholders for files held elsewhere
cat <filename>         - Show content of a local file
exit                   - Exit node terminal
`

// shellNode is the part of a node the shell drives.
type shellNode interface {
	ID() types.NodeID
	Create(name string, content []byte) error
	Modify(name string, content []byte) error
	Delete(name string) error
	Cat(name string) ([]byte, error)
	LocalFiles() []string
	Ghosts() []string
	Upload(ctx context.Context, name string) (string, error)
	Download(ctx context.Context, name string) error
	ListCloud(ctx context.Context) ([]string, error)
}

type shell struct {
	node shellNode
	in   *bufio.Scanner
	out  io.Writer
	now  func() time.Time
}

func newShell(n shellNode, in io.Reader, out io.Writer) *shell {
	return &shell{
		node: n,
		in:   bufio.NewScanner(in),
		out:  out,
		now:  time.Now,
	}
}

// Run reads commands until exit or end of input.
func (s *shell) Run() error {
	fmt.Fprintln(s.out, onlineStyle.Render(fmt.Sprintf("[Node %s] Node is online!", s.node.ID())))

	for {
		fmt.Fprint(s.out, promptStyle.Render(fmt.Sprintf("[Node %s] $ ", s.node.ID())))
		if !s.in.Scan() {
			break
		}
		fields := strings.Fields(s.in.Text())
		if len(fields) == 0 {
			continue
		}
		if !s.exec(fields[0], fields[1:]) {
			return nil
		}
	}

	fmt.Fprintln(s.out)
	return s.in.Err()
}

// exec runs one command and reports whether the shell should continue.
func (s *shell) exec(action string, args []string) bool {
	stamp := s.now().Format(types.TimeFormat)
	name := ""
	if len(args) > 0 {
		name = args[0]
	}

	switch strings.ToLower(action) {
	case "exit", "quit":
		fmt.Fprintf(s.out, "[Node %s] Exiting...\n", s.node.ID())
		fmt.Fprintln(s.out, offlineStyle.Render(fmt.Sprintf("[Node %s] Node is offline! (%s)", s.node.ID(), stamp)))
		return false

	case "help":
		fmt.Fprint(s.out, shellHelp)

	case "ls":
		fmt.Fprintf(s.out, "Files on this node: %s\n", joinOrNone(s.node.LocalFiles()))

	case "ghosts":
		ghosts := s.node.Ghosts()
		for i, g := range ghosts {
			ghosts[i] = ghostStyle.Render(g)
		}
		fmt.Fprintf(s.out, "Replicated elsewhere: %s\n", joinOrNone(ghosts))

	case "cat":
		if name == "" {
			return s.usage(action)
		}
		data, err := s.node.Cat(name)
		if err != nil {
			fmt.Fprintf(s.out, "File '%s' does not exist.\n", name)
			break
		}
		fmt.Fprintf(s.out, "\n--- %s (%s) ---\n%s\n", name, utils.FormatDataSize(int64(len(data))), strings.TrimRight(string(data), "\n"))

	case "create":
		if name == "" {
			return s.usage(action)
		}
		content, ok := s.prompt("Enter text for new file: ")
		if !ok {
			return false
		}
		if err := s.node.Create(name, []byte(content)); err != nil {
			if errors.Is(err, storage.ErrExists) {
				fmt.Fprintln(s.out, "File already exists.")
			} else {
				fmt.Fprintf(s.out, "Create failed: %v\n", err)
			}
			break
		}
		fmt.Fprintf(s.out, "Created file %s at %s.\n", name, stamp)

	case "modify":
		if name == "" {
			return s.usage(action)
		}
		if _, err := s.node.Cat(name); err != nil {
			fmt.Fprintln(s.out, "File does not exist.")
			break
		}
		content, ok := s.prompt("Enter new text (will overwrite): ")
		if !ok {
			return false
		}
		if err := s.node.Modify(name, []byte(content)); err != nil {
			fmt.Fprintf(s.out, "Modify failed: %v\n", err)
			break
		}
		fmt.Fprintf(s.out, "Modified file %s at %s.\n", name, stamp)

	case "delete":
		if name == "" {
			return s.usage(action)
		}
		if err := s.node.Delete(name); err != nil {
			fmt.Fprintln(s.out, "File does not exist.")
			break
		}
		fmt.Fprintf(s.out, "Deleted file %s at %s.\n", name, stamp)

	case "upload":
		if name == "" {
			return s.usage(action)
		}
		start := time.Now()
		msg, err := s.node.Upload(context.Background(), name)
		if errors.Is(err, node.ErrFileNotFound) {
			fmt.Fprintln(s.out, "File not found locally")
			break
		}
		fmt.Fprint(s.out, warnStyle.Render(fmt.Sprintf("Uploading %s...", name))+" ")
		if err != nil {
			fmt.Fprintf(s.out, "Failed in %.2f seconds.\n%v\n", time.Since(start).Seconds(), err)
			break
		}
		fmt.Fprintf(s.out, "Done in %.2f seconds at %s.\n%s\n", time.Since(start).Seconds(), stamp, msg)

	case "download":
		if name == "" {
			return s.usage(action)
		}
		fmt.Fprint(s.out, warnStyle.Render(fmt.Sprintf("Downloading %s...", name))+" ")
		start := time.Now()
		err := s.node.Download(context.Background(), name)
		elapsed := time.Since(start).Seconds()
		switch {
		case errors.Is(err, node.ErrNoOwners):
			fmt.Fprintln(s.out, "No node has this file.")
		case errors.Is(err, node.ErrFileNotFound):
			fmt.Fprintf(s.out, "Failed in %.2f seconds.\nFile not found on peer node.\n", elapsed)
		case err != nil:
			fmt.Fprintf(s.out, "Failed in %.2f seconds.\nDownload failed: %v\n", elapsed, err)
		default:
			fmt.Fprintf(s.out, "Done in %.2f seconds at %s.\nDownloaded %s\n", elapsed, stamp, name)
		}

	case "list":
		files, err := s.node.ListCloud(context.Background())
		if err != nil {
			fmt.Fprintf(s.out, "List failed: %v\n", err)
			break
		}
		fmt.Fprintf(s.out, "Files on cloud: %s\n", joinOrNone(files))

	default:
		fmt.Fprintln(s.out, "Unknown command. Type 'help' for available commands.")
	}
	return true
}

func (s *shell) usage(action string) bool {
	fmt.Fprintf(s.out, "Usage: %s <filename>\n", action)
	return true
}

func (s *shell) prompt(label string) (string, bool) {
	fmt.Fprint(s.out, label)
	if !s.in.Scan() {
		return "", false
	}
	return s.in.Text(), true
}

func joinOrNone(items []string) string {
	if len(items) == 0 {
		return "None"
	}
	return strings.Join(items, ", ")
}
