// Command chunkctl hashes files and moves them in and out of a chunk store.
package main

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/cbrewster/castore/internal/chunk"
	"github.com/cbrewster/castore/internal/chunkstore"
	"github.com/cbrewster/castore/internal/config"
	"github.com/cbrewster/castore/internal/hash"
)

var log = logrus.New()

type globalFlags struct {
	configPath string
	db         string
	backend    string
	verify     bool
	logLevel   string
}

func (g *globalFlags) register(fs *pflag.FlagSet) {
	fs.StringVarP(&g.configPath, "config", "c", "", "YAML config file")
	fs.StringVar(&g.db, "db", "", "path of the chunk store (overrides config)")
	fs.StringVar(&g.backend, "backend", "", "store backend: bolt or file (overrides config)")
	fs.BoolVar(&g.verify, "verify", false, "reject chunks whose hash does not match their payload")
	fs.StringVar(&g.logLevel, "log-level", "", "log level (overrides config)")
}

// resolve computes the effective configuration: defaults, then the config
// file, then any flags set on the command line.
func (g *globalFlags) resolve(fs *pflag.FlagSet) (config.Config, error) {
	cfg := config.Default()
	if g.configPath != "" {
		var err error
		cfg, err = config.Load(g.configPath)
		if err != nil {
			return cfg, err
		}
	}

	if fs.Changed("db") {
		cfg.Path = g.db
	}
	if fs.Changed("backend") {
		cfg.Backend = g.backend
	}
	if fs.Changed("verify") {
		cfg.Verify = g.verify
	}
	if fs.Changed("log-level") {
		cfg.LogLevel = g.logLevel
	}

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		return cfg, err
	}
	log.SetLevel(level)

	return cfg, cfg.Validate()
}

// openStore opens the configured store. Read-only commands pass readOnly so
// that a mistyped path is reported instead of creating an empty store.
func (g *globalFlags) openStore(cmd *cobra.Command, readOnly bool) (chunkstore.Store, error) {
	cfg, err := g.resolve(cmd.Flags())
	if err != nil {
		return nil, err
	}
	cfg.ReadOnly = cfg.ReadOnly || readOnly

	log.WithFields(logrus.Fields{
		"backend":   cfg.Backend,
		"path":      cfg.Path,
		"verify":    cfg.Verify,
		"read_only": cfg.ReadOnly,
	}).Debug("opening chunk store")

	return cfg.Open()
}

// readInput reads the named file, or stdin for "" and "-".
func readInput(cmd *cobra.Command, name string) ([]byte, error) {
	if name == "" || name == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(name)
}

func newRootCmd() *cobra.Command {
	var g globalFlags

	root := &cobra.Command{
		Use:           "chunkctl",
		Short:         "Inspect and populate a content-addressed chunk store",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	g.register(root.PersistentFlags())

	root.AddCommand(&cobra.Command{
		Use:   "hash [file]",
		Short: "Print the hash of a file or stdin",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var name string
			if len(args) > 0 {
				name = args[0]
			}
			data, err := readInput(cmd, name)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash.Of(data))
			return nil
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "parse <hash>",
		Short: "Validate a hash and print its raw bytes as hex",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := hash.Parse(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hex.EncodeToString(h.Bytes()))
			return nil
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "put [file...]",
		Short: "Store files, or stdin, as chunks in a single batch",
		RunE: func(cmd *cobra.Command, args []string) error {
			var chunks []chunk.Chunk
			if len(args) == 0 {
				args = []string{"-"}
			}
			stdin := 0
			for _, arg := range args {
				if arg == "-" {
					stdin++
				}
			}
			if stdin > 1 {
				return errors.New("stdin (-) given more than once")
			}
			for _, arg := range args {
				data, err := readInput(cmd, arg)
				if err != nil {
					return err
				}
				chunks = append(chunks, chunk.New(data))
			}

			store, err := g.openStore(cmd, false)
			if err != nil {
				return err
			}
			defer store.Close()

			err = store.PutMany(chunks)
			if err != nil {
				return err
			}

			for i, c := range chunks {
				log.WithFields(logrus.Fields{
					"hash": c.Hash(),
					"size": c.Size(),
					"src":  args[i],
				}).Debug("stored chunk")
				fmt.Fprintln(cmd.OutOrStdout(), c.Hash())
			}
			return nil
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "get <hash>",
		Short: "Write a chunk's payload to stdout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := hash.Parse(args[0])
			if err != nil {
				return err
			}

			store, err := g.openStore(cmd, true)
			if err != nil {
				return err
			}
			defer store.Close()

			c, err := store.Get(h)
			if err != nil {
				return err
			}
			_, err = c.WriteTo(cmd.OutOrStdout())
			return err
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "has <hash>",
		Short: "Exit non-zero unless the chunk is stored",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := hash.Parse(args[0])
			if err != nil {
				return err
			}

			store, err := g.openStore(cmd, true)
			if err != nil {
				return err
			}
			defer store.Close()

			ok, err := store.Has(h)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("%w: %s", chunkstore.ErrNotExist, h)
			}
			return nil
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "rm <hash>",
		Short: "Delete a chunk",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := hash.Parse(args[0])
			if err != nil {
				return err
			}

			store, err := g.openStore(cmd, false)
			if err != nil {
				return err
			}
			defer store.Close()

			return store.Delete(h)
		},
	})

	return root
}

func main() {
	err := newRootCmd().Execute()
	if err != nil {
		log.Error(err)
		if errors.Is(err, chunkstore.ErrNotExist) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}
