package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/AaroAskala/Suomidle-sub000/internal/sim/maailma"
	"github.com/AaroAskala/Suomidle-sub000/internal/sim/store"
)

var errQuit = errors.New("quit")

const helpText = `commands:
  click [n]          throw löyly n times (default 1)
  buy <building>     buy one building
  tech <tech>        buy one tech
  prestige           sauna reset into the next tier
  tasks              list today's daily tasks
  claim <task>       claim a completed daily task
  reroll             reroll today's daily tasks
  shop               list Maailma shop items
  burn               polta maailma (hard reset for tuhka)
  purchase <item>    buy one level of a Maailma shop item
  status             show a status line
  save               save now
  bg | fg            pause or resume uptime accrual
  quit               save and exit`

// runCommand applies one player command line to st.
func runCommand(ctx context.Context, st *store.Store, line string, now time.Time, out io.Writer) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	arg := ""
	if len(fields) > 1 {
		arg = fields[1]
	}
	say := func(format string, a ...any) { _, _ = fmt.Fprintf(out, format+"\n", a...) }

	switch strings.ToLower(fields[0]) {
	case "help", "?":
		say("%s", helpText)
	case "click":
		n := 1
		if arg != "" {
			if _, err := fmt.Sscanf(arg, "%d", &n); err != nil || n < 1 {
				return fmt.Errorf("click: bad count %q", arg)
			}
		}
		for i := 0; i < n; i++ {
			st.Click(now)
		}
		say("löyly: %s", formatAmount(st.State().Population))
	case "buy":
		cost, ok := st.BuildingCost(arg)
		if !ok {
			return fmt.Errorf("buy: unknown building %q", arg)
		}
		if !st.BuyBuilding(arg, now) {
			return fmt.Errorf("buy %s: needs %s löyly and an unlocked tier", arg, formatAmount(cost))
		}
		say("bought %s (owned %d)", arg, st.State().Buildings[arg])
	case "tech":
		if !st.BuyTech(arg, now) {
			return fmt.Errorf("tech %s: unknown, locked or unaffordable", arg)
		}
		say("bought tech %s (owned %d)", arg, st.State().TechCounts[arg])
	case "prestige":
		need := st.NextTierAt()
		if !st.Prestige(now) {
			return fmt.Errorf("prestige: needs %s löyly", formatAmount(need))
		}
		s := st.State()
		say("tier %d, prestige x%.2f", s.TierLevel, s.PrestigeMult)
	case "tasks":
		writeTasks(st, now, out)
	case "claim":
		buff, ok := st.ClaimDailyTask(arg, now)
		if !ok {
			return fmt.Errorf("claim %s: not completed or already claimed", arg)
		}
		if buff != nil {
			say("claimed %s: x%.2f gain, %s", arg, buff.Value, humanize.RelTime(time.UnixMilli(buff.EndsAt), now, "ago", "left"))
		} else {
			say("claimed %s", arg)
		}
	case "reroll":
		if !st.RerollDailyTasks(now) {
			return errors.New("reroll: no rerolls left today")
		}
		writeTasks(st, now, out)
	case "shop":
		writeShop(st, out)
	case "burn":
		award, ok := st.PoltaMaailma(now)
		if !ok {
			return errors.New("burn: nothing to gain yet")
		}
		say("the world burns: +%s tuhka (%s total)", humanize.BigComma(award.BigInt()), st.State().Maailma.Tuhka.String())
	case "purchase":
		if !st.PurchaseMaailma(arg, now) {
			return fmt.Errorf("purchase %s: unknown, maxed or unaffordable", arg)
		}
		say("%s now level %d", arg, st.State().Maailma.Level(arg))
	case "status":
		say("%s", statusLine(st, now))
	case "save":
		if err := st.Save(ctx, now); err != nil {
			return fmt.Errorf("save: %w", err)
		}
		say("saved")
	case "bg":
		st.SetForeground(false)
	case "fg":
		st.SetForeground(true)
	case "quit", "exit":
		return errQuit
	default:
		return fmt.Errorf("unknown command %q (try 'help')", fields[0])
	}
	return nil
}

func writeTasks(st *store.Store, now time.Time, out io.Writer) {
	d := st.State().DailyTasks
	defs := st.Catalogs().DailyTasks.ByID
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "TASK\tTITLE\tPROGRESS\tSTATE\n")
	for _, id := range d.TaskOrder {
		inst := d.Tasks[id]
		def := defs[id]
		state := "pending"
		switch {
		case inst.Claimed():
			state = "claimed"
		case inst.Completed():
			state = "ready"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s / %s\t%s\n", id, def.Title, formatAmount(inst.Progress), formatAmount(def.Condition.Goal()), state)
	}
	_ = tw.Flush()
	if d.NextResetAt > 0 {
		_, _ = fmt.Fprintf(out, "resets %s\n", humanize.RelTime(time.UnixMilli(d.NextResetAt), now, "ago", "from now"))
	}
}

func writeShop(st *store.Store, out io.Writer) {
	s := st.State()
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "ITEM\tTITLE\tLEVEL\tNEXT\n")
	for _, it := range st.Catalogs().Shop.Items {
		next := "max"
		if cost, ok := maailma.NextCost(st.Catalogs().Shop, s.Maailma, it.ID); ok {
			next = cost.String()
		}
		fmt.Fprintf(tw, "%s\t%s\t%d/%d\t%s\n", it.ID, it.Title, s.Maailma.Level(it.ID), it.MaxLevel, next)
	}
	_ = tw.Flush()
	_, _ = fmt.Fprintf(out, "tuhka: %s, burn preview: +%s\n", s.Maailma.Tuhka.String(), st.TuhkaPreview().String())
}
