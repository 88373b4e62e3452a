// Package cmd defines the kong command-line surface over the
// orchestrator: one typed struct per subcommand, each with a Run
// method that kong calls with the parsed *CLI.
package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/sirupsen/logrus"

	"github.com/zellyn/sectorcpc/orchestrator"
)

// CLI is the top-level kong command tree.
type CLI struct {
	Version  kong.VersionFlag `kong:"help='Print version and exit.'"`
	File     string           `kong:"required,help='Disk image to operate on.'"`
	NoAmsdos bool             `kong:"help='Do not add an AMSDOS header on insert.'"`
	Text     bool             `kong:"help='Treat files as text; stop at byte 0x1A on extract.'"`
	Debug    bool             `kong:"help='Enable debug-level logging.'"`

	New     NewCmd     `kong:"cmd,help='Create a new, empty disk image.'"`
	Dir     DirCmd     `kong:"cmd,help='List the contents of the disk image.'"`
	Info    InfoCmd    `kong:"cmd,help='Print metadata about a file.'"`
	Dump    DumpCmd    `kong:"cmd,help='Hex-dump a file to standard output.'"`
	Extract ExtractCmd `kong:"cmd,help='Extract a file to the host disk.'"`
	Extall  ExtallCmd  `kong:"cmd,name='extall',help='Extract every file to the host disk.'"`
	Insert  InsertCmd  `kong:"cmd,help='Insert a host file into the disk image.'"`
	Del     DelCmd     `kong:"cmd,name='del',help='Delete a file from the disk image.'"`
}

// NewLogger builds the shared logger, raising its level under --debug.
func NewLogger(debug bool) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	if debug {
		log.SetLevel(logrus.DebugLevel)
	} else {
		log.SetLevel(logrus.InfoLevel)
	}
	return log
}

// NewCmd implements `new`.
type NewCmd struct{}

func (c *NewCmd) Run(cli *CLI) error {
	log := NewLogger(cli.Debug)
	sess, err := orchestrator.New(cli.File, log)
	if err != nil {
		return err
	}
	return sess.Close()
}

// DirCmd implements `dir`.
type DirCmd struct{}

func (c *DirCmd) Run(cli *CLI) error {
	log := NewLogger(cli.Debug)
	sess, err := orchestrator.Open(cli.File, log)
	if err != nil {
		return err
	}
	if err := sess.List(os.Stdout); err != nil {
		return err
	}
	return sess.Close()
}

// InfoCmd implements `info <name> [--tracks]`.
type InfoCmd struct {
	Name   string `kong:"arg,required,help='File name to describe.'"`
	Tracks bool   `kong:"help='Print (track,min,max) sector-id triples instead of full metadata.'"`
}

func (c *InfoCmd) Run(cli *CLI) error {
	log := NewLogger(cli.Debug)
	sess, err := orchestrator.Open(cli.File, log)
	if err != nil {
		return err
	}
	if err := sess.Info(os.Stdout, c.Name, c.Tracks); err != nil {
		return err
	}
	return sess.Close()
}

// DumpCmd implements `dump <name>`.
type DumpCmd struct {
	Name string `kong:"arg,required,help='File name to hex-dump.'"`
}

func (c *DumpCmd) Run(cli *CLI) error {
	log := NewLogger(cli.Debug)
	sess, err := orchestrator.Open(cli.File, log)
	if err != nil {
		return err
	}
	if err := sess.Dump(os.Stdout, c.Name, cli.Text); err != nil {
		return err
	}
	return sess.Close()
}

// ExtractCmd implements `extract <name>`.
type ExtractCmd struct {
	Name string `kong:"arg,required,help='File name to extract.'"`
}

func (c *ExtractCmd) Run(cli *CLI) error {
	log := NewLogger(cli.Debug)
	sess, err := orchestrator.Open(cli.File, log)
	if err != nil {
		return err
	}
	if err := sess.Extract(c.Name, cli.Text); err != nil {
		return err
	}
	return sess.Close()
}

// ExtallCmd implements `extall`.
type ExtallCmd struct{}

func (c *ExtallCmd) Run(cli *CLI) error {
	log := NewLogger(cli.Debug)
	sess, err := orchestrator.Open(cli.File, log)
	if err != nil {
		return err
	}
	if err := sess.ExtractAll(cli.Text); err != nil {
		return err
	}
	return sess.Close()
}

// InsertCmd implements `insert <name> [<entry_addr> <exec_addr>]`.
// Addresses are hexadecimal with non-hex characters ignored, so
// 0x8000, &8000, and 8000h all parse to the same value.
type InsertCmd struct {
	Name      string `kong:"arg,required,help='Host file to insert.'"`
	EntryAddr string `kong:"arg,optional,default='0',help='Load address, hex.'"`
	ExecAddr  string `kong:"arg,optional,default='0',help='Execution address, hex.'"`
}

func (c *InsertCmd) Run(cli *CLI) error {
	entryAddr, err := parseHexAddr(c.EntryAddr)
	if err != nil {
		return err
	}
	execAddr, err := parseHexAddr(c.ExecAddr)
	if err != nil {
		return err
	}

	log := NewLogger(cli.Debug)
	sess, err := orchestrator.Open(cli.File, log)
	if err != nil {
		return err
	}
	if err := sess.Insert(c.Name, !cli.NoAmsdos, entryAddr, execAddr); err != nil {
		return err
	}
	return sess.Close()
}

// DelCmd implements `del <name>`.
type DelCmd struct {
	Name string `kong:"arg,required,help='File name to delete.'"`
}

func (c *DelCmd) Run(cli *CLI) error {
	log := NewLogger(cli.Debug)
	sess, err := orchestrator.Open(cli.File, log)
	if err != nil {
		return err
	}
	if err := sess.Delete(os.Stdout, c.Name); err != nil {
		return err
	}
	return sess.Close()
}

// parseHexAddr parses a hexadecimal address, discarding any non-hex
// characters first so "0x8000", "&8000", and "8000h" all parse alike.
func parseHexAddr(s string) (uint16, error) {
	var sb strings.Builder
	for _, r := range s {
		if strings.IndexRune("0123456789abcdefABCDEF", r) >= 0 {
			sb.WriteRune(r)
		}
	}
	if sb.Len() == 0 {
		return 0, nil
	}
	var v uint64
	if _, err := fmt.Sscanf(sb.String(), "%x", &v); err != nil {
		return 0, fmt.Errorf("invalid hex address %q: %v", s, err)
	}
	return uint16(v), nil
}
