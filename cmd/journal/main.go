package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"sparkvision/internal/model"
	"sparkvision/internal/repository/sqlite"
)

func main() {
	dbPath := flag.String("db", "data/sparkvision.db", "Database path")
	limit := flag.Int("limit", 20, "Number of escalations to show")
	onlyAlerts := flag.Bool("alerts", false, "Show only escalations that fired an alert")
	since := flag.Duration("since", 0, "Show escalations newer than this, e.g. 24h")
	prune := flag.Duration("prune", 0, "Delete escalations older than this, e.g. 720h")
	snapshots := flag.Bool("snapshots", false, "List stored alert snapshots instead")
	flag.Parse()

	db, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	escalations := sqlite.NewEscalationRepository(db)

	if *prune > 0 {
		cutoff := time.Now().Add(-*prune)
		removed, err := escalations.DeleteBefore(cutoff)
		if err != nil {
			log.Fatalf("Failed to prune journal: %v", err)
		}
		fmt.Printf("🧹 Removed %d escalations older than %s\n", removed, cutoff.Format(time.DateTime))
		return
	}

	filter := &model.JournalFilter{
		OnlyAlerts: *onlyAlerts,
		Limit:      *limit,
	}
	if *since > 0 {
		filter.Since = time.Now().Add(-*since)
	}

	if *snapshots {
		listSnapshots(sqlite.NewSnapshotRepository(db), filter)
		return
	}

	entries, err := escalations.GetAll(filter)
	if err != nil {
		log.Fatalf("Failed to read journal: %v", err)
	}
	total, err := escalations.GetTotalCount(filter)
	if err != nil {
		log.Fatalf("Failed to count escalations: %v", err)
	}

	if len(entries) == 0 {
		fmt.Println("No escalations recorded")
		return
	}

	for _, e := range entries {
		verdict := "no"
		switch {
		case e.Error != "":
			verdict = "error"
		case e.Verdict:
			verdict = "yes"
		}
		marker := "  "
		if e.AlertFired {
			marker = "🔥"
		}
		fmt.Printf("%s %s  pixels=%-6d verdict=%-5s counter=%d latency=%s\n",
			marker, e.Timestamp.Local().Format(time.DateTime), e.FirePixels, verdict,
			e.CounterAfter, e.Latency.Round(time.Millisecond))
		if e.Error != "" {
			fmt.Printf("     error: %s\n", e.Error)
		} else if e.Response != "" {
			fmt.Printf("     response: %s\n", e.Response)
		}
	}

	fmt.Printf("\n📊 Showing %d of %d escalations\n", len(entries), total)
}

func listSnapshots(repo *sqlite.SnapshotRepository, filter *model.JournalFilter) {
	snaps, err := repo.GetAll(filter)
	if err != nil {
		log.Fatalf("Failed to read snapshots: %v", err)
	}
	if len(snaps) == 0 {
		fmt.Println("No snapshots stored")
		return
	}
	for _, s := range snaps {
		fmt.Printf("%s  %s (%d bytes)\n", s.Timestamp.Local().Format(time.DateTime), s.FilePath, s.FileSize)
	}
}
