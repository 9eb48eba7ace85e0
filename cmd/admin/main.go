package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/dustin/go-humanize"

	"github.com/AaroAskala/Suomidle-sub000/internal/persistence/archive"
	persistlog "github.com/AaroAskala/Suomidle-sub000/internal/persistence/log"
	"github.com/AaroAskala/Suomidle-sub000/internal/persistence/save"
	"github.com/AaroAskala/Suomidle-sub000/internal/persistence/slots"
	"github.com/AaroAskala/Suomidle-sub000/internal/persistence/snapshot"
	"github.com/AaroAskala/Suomidle-sub000/internal/sim/catalogs"
)

// defaults come from the same environment the server reads.
type defaults struct {
	Namespace string `env:"SUOMIDLE_SAVE_NAMESPACE" envDefault:"local"`
	DataDir   string `env:"SUOMIDLE_DATA_DIR" envDefault:"./data"`
	ConfigDir string `env:"SUOMIDLE_CONFIG_DIR" envDefault:"./configs"`
	Slot      string `env:"SUOMIDLE_SLOT" envDefault:"main"`
}

const usage = `usage: admin <command> [flags]
  lint       validate content documents against schemas/
  slots      list save slots in a namespace
  export     write a slot to a .save.zst file
  import     load a .save.zst file into a slot (migrating it)
  inspect    summarize a slot or a .save.zst file
  delete     remove a slot
  resets     list Maailma reset archives
  telemetry  print one telemetry log file`

func main() {
	def, err := env.ParseAs[defaults]()
	if err != nil {
		fmt.Fprintln(os.Stderr, "parse env:", err)
		os.Exit(2)
	}
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
	if err := run(context.Background(), def, os.Args[1], os.Args[2:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, os.Args[1]+":", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, def defaults, cmd string, args []string, out io.Writer) error {
	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
	fs.SetOutput(out)
	dataDir := fs.String("data", def.DataDir, "runtime data directory")
	ns := fs.String("ns", def.Namespace, "save namespace")
	slot := fs.String("slot", def.Slot, "save slot")
	configDir := fs.String("configs", def.ConfigDir, "config directory")
	schemaDir := fs.String("schemas", "./schemas", "schema directory")
	file := fs.String("file", "", "save file (.save.zst) or telemetry file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	openSlots := func() (*slots.Store, error) {
		return slots.Open(filepath.Join(*dataDir, "saves.sqlite"), *ns)
	}

	switch cmd {
	case "lint":
		if err := catalogs.Lint(*configDir, *schemaDir); err != nil {
			return err
		}
		_, err := catalogs.Load(*configDir)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, "ok")
		return nil

	case "slots":
		db, err := openSlots()
		if err != nil {
			return err
		}
		defer db.Close()
		return listSlots(ctx, db, out)

	case "export":
		if *file == "" {
			return errors.New("missing -file")
		}
		db, err := openSlots()
		if err != nil {
			return err
		}
		defer db.Close()
		rec, err := db.Get(ctx, *slot)
		if err != nil {
			return err
		}
		h := snapshot.NewHeader(rec.Version, *ns, *slot, rec.UpdatedAt)
		if err := snapshot.WriteFile(*file, h, rec.Document); err != nil {
			return err
		}
		fmt.Fprintf(out, "exported %s to %s (export %s)\n", rec.StorageKey, *file, h.ExportID)
		return nil

	case "import":
		if *file == "" {
			return errors.New("missing -file")
		}
		db, err := openSlots()
		if err != nil {
			return err
		}
		defer db.Close()
		return importSave(ctx, db, *slot, *file, out)

	case "inspect":
		var doc []byte
		if *file != "" {
			_, b, err := snapshot.ReadFile(*file)
			if err != nil {
				return err
			}
			doc = b
		} else {
			db, err := openSlots()
			if err != nil {
				return err
			}
			defer db.Close()
			rec, err := db.Get(ctx, *slot)
			if err != nil {
				return err
			}
			doc = rec.Document
		}
		return inspect(doc, out)

	case "delete":
		db, err := openSlots()
		if err != nil {
			return err
		}
		defer db.Close()
		if err := db.Delete(ctx, *slot); err != nil {
			return err
		}
		fmt.Fprintf(out, "deleted %s\n", save.StorageKey(*ns, *slot))
		return nil

	case "resets":
		metas, err := archive.ListResets(*dataDir)
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "RESET\tNAMESPACE\tSLOT\tTIER\tAWARD\tCREATED")
		for _, m := range metas {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\t%s\n", m.Reset, m.Namespace, m.Slot, m.HighestTier, m.Award, m.CreatedAt)
		}
		return tw.Flush()

	case "telemetry":
		if *file == "" {
			return errors.New("missing -file")
		}
		entries, err := persistlog.ReadEntries(*file)
		for _, e := range entries {
			fmt.Fprintf(out, "%s %s %v\n", e.At, e.Event, e.Payload)
		}
		return err
	}
	return fmt.Errorf("unknown command\n%s", usage)
}

func listSlots(ctx context.Context, db *slots.Store, out io.Writer) error {
	infos, err := db.List(ctx)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SLOT\tKEY\tVERSION\tSIZE\tUPDATED")
	for _, in := range infos {
		fmt.Fprintf(tw, "%s\t%s\tv%d\t%s\t%s\n", in.Slot, in.StorageKey, in.Version,
			humanize.Bytes(uint64(in.Size)), humanize.Time(time.UnixMilli(in.UpdatedAt)))
	}
	return tw.Flush()
}

// importSave migrates the file's document to the current version before
// storing it. Unreadable or future-version documents are refused so the
// slot is never overwritten with something the game cannot load.
func importSave(ctx context.Context, db *slots.Store, slot, path string, out io.Writer) error {
	h, raw, err := snapshot.ReadFile(path)
	if err != nil {
		return err
	}
	s, version, err := save.Decode(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	doc, err := save.Encode(s)
	if err != nil {
		return err
	}
	if err := db.Put(ctx, slot, save.CurrentVersion, doc, h.SavedAt); err != nil {
		return err
	}
	fmt.Fprintf(out, "imported %s into %s (v%d -> v%d)\n", path, save.StorageKey(db.Namespace(), slot), version, save.CurrentVersion)
	return nil
}

func inspect(doc []byte, out io.Writer) error {
	s, version, err := save.Decode(doc)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "version\tv%d\n", version)
	fmt.Fprintf(tw, "tier\t%d\n", s.TierLevel)
	fmt.Fprintf(tw, "löyly\t%s\n", humanize.SIWithDigits(s.Population, 2, ""))
	fmt.Fprintf(tw, "total löyly\t%s\n", humanize.SIWithDigits(s.TotalPopulation, 2, ""))
	fmt.Fprintf(tw, "prestige\tx%.2f (%d points)\n", s.PrestigeMult, s.PrestigePoints)
	fmt.Fprintf(tw, "era\tx%.0f (major %d)\n", s.EraMult, s.LastMajorVersion)
	fmt.Fprintf(tw, "buildings\t%d kinds\n", len(s.Buildings))
	fmt.Fprintf(tw, "tuhka\t%s (earned %s, resets %d)\n", s.Maailma.Tuhka.String(), s.Maailma.TotalTuhkaEarned.String(), s.Maailma.TotalResets)
	fmt.Fprintf(tw, "daily tasks\t%s, %d tasks, %d buffs\n", s.DailyTasks.RolledDate, len(s.DailyTasks.TaskOrder), len(s.DailyTasks.ActiveBuffs))
	if s.LastSave > 0 {
		fmt.Fprintf(tw, "last save\t%s\n", humanize.Time(time.UnixMilli(s.LastSave)))
	}
	return tw.Flush()
}
