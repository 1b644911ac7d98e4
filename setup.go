package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"dva/config"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Write the config file with the server URL and API token",
	Long: `Write the config file with the server URL and API token.

Values not given with --url and --token are prompted for. The token is
read without echo and may be left empty for anonymous access to
published data. The file is written to $DATAVERSE_CONFIG_PATH or
~/.dataverse, readable by the owner only.`,
	Args: cobra.NoArgs,
	RunE: runSetup,
}

func runSetup(cmd *cobra.Command, _ []string) error {
	src := cmd.InOrStdin()
	in := bufio.NewReader(src)
	out := cmd.ErrOrStderr()

	url := strings.TrimSpace(urlFlag)
	if url == "" {
		fmt.Fprint(out, "Dataverse URL: ")
		line, err := readLine(in)
		if err != nil {
			return err
		}
		url = line
	}
	url = strings.TrimSuffix(url, "/")
	if err := config.ValidateURL(url); err != nil {
		return err
	}

	token := strings.TrimSpace(tokenFlag)
	if token == "" && !cmd.Flags().Changed("token") {
		fmt.Fprint(out, "API token (empty for anonymous access): ")
		line, err := readSecret(src, in)
		fmt.Fprintln(out)
		if err != nil {
			return err
		}
		token = line
	}

	path := config.Path()
	if err := config.Save(path, url, token); err != nil {
		return err
	}
	fmt.Fprintf(out, "Config written to %s\n", path)
	return nil
}

func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// readSecret reads without echo from a terminal, plain lines otherwise
func readSecret(src io.Reader, r *bufio.Reader) (string, error) {
	f, ok := src.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return readLine(r)
	}
	fd := int(f.Fd())
	b, err := term.ReadPassword(fd)
	if err != nil {
		return "", fmt.Errorf("failed to read token: %w", err)
	}
	return strings.TrimSpace(string(b)), nil
}
