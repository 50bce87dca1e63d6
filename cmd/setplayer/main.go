// Package main provides a CLI tool for creating or updating a player's traits.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/cory-johannsen/pvp/internal/config"
	"github.com/cory-johannsen/pvp/internal/game/stats"
	"github.com/cory-johannsen/pvp/internal/storage"
	"github.com/cory-johannsen/pvp/internal/storage/postgres"
	"github.com/cory-johannsen/pvp/internal/storage/sqlite"
)

var knownTraits = map[string]bool{
	stats.Endurance:  true,
	stats.Strength:   true,
	stats.Dexterity:  true,
	stats.Resilience: true,
	stats.Perception: true,
	stats.Speed:      true,
	stats.Focus:      true,
}

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	id := flag.String("id", "", "player id (required)")
	name := flag.String("name", "", "display name (required)")
	traitList := flag.String("traits", "", "comma-separated name=value pairs, e.g. endurance=60,speed=40")
	flag.Parse()

	if *id == "" || *name == "" {
		flag.Usage()
		os.Exit(1)
	}

	traits, err := parseTraits(*traitList)
	if err != nil {
		log.Fatalf("parsing traits: %v", err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	players, closeStore, err := openPlayers(ctx, cfg)
	if err != nil {
		log.Fatalf("opening store: %v", err)
	}
	defer closeStore()

	p, err := players.UpsertPlayer(ctx, storage.Player{ID: *id, Name: *name, Traits: traits})
	if err != nil {
		log.Fatalf("saving player %q: %v", *id, err)
	}

	base := stats.Derive(p.Traits)
	fmt.Fprintf(os.Stdout, "saved %s (%s): hp=%d attack=%d defense=%d evasion=%d crit=%.3f [%s]\n",
		p.Name, p.ID, base.MaxHP, base.Attack, base.Defense, base.Evasion, base.CritChance, time.Since(start))
}

func openPlayers(ctx context.Context, cfg config.Config) (storage.Players, func(), error) {
	if cfg.Storage.Driver == config.DriverSQLite {
		s, err := sqlite.Open(cfg.Storage.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { _ = s.Close() }, nil
	}
	pool, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	return postgres.NewPlayerRepository(pool.DB()), pool.Close, nil
}

// parseTraits reads "name=value" pairs. Values must lie in [0, 100].
func parseTraits(s string) (map[string]float64, error) {
	out := make(map[string]float64)
	if strings.TrimSpace(s) == "" {
		return out, nil
	}
	for _, pair := range strings.Split(s, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok {
			return nil, fmt.Errorf("malformed pair %q", pair)
		}
		k = strings.TrimSpace(k)
		if !knownTraits[k] {
			return nil, fmt.Errorf("unknown trait %q: must be one of %s", k, strings.Join(traitNames(), ", "))
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return nil, fmt.Errorf("trait %q: %w", k, err)
		}
		if f < 0 || f > 100 {
			return nil, fmt.Errorf("trait %q: %v outside [0, 100]", k, f)
		}
		out[k] = f
	}
	return out, nil
}

func traitNames() []string {
	names := make([]string, 0, len(knownTraits))
	for k := range knownTraits {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
