package main

import (
	"bufio"
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/MigzCtrl/TireOps-sub000/internal/inventory"
	"github.com/MigzCtrl/TireOps-sub000/internal/store"
)

// seed-inventory bulk-loads a local inventory CSV straight into the store,
// bypassing the extraction service. Useful for initial stock loads and for
// rebuilding a dev database.
func main() {
	var (
		dbPath  = flag.String("db", filepath.FromSlash("data/tireops.db"), "Path to SQLite database")
		csvPath = flag.String("csv", "", "Inventory CSV (brand,model,size,quantity,price)")
		shopID  = flag.Uint("shop", 1, "Shop identifier to load into")
		mode    = flag.String("mode", "merge", "Commit mode: add or merge")
	)
	flag.Parse()

	if strings.TrimSpace(*csvPath) == "" {
		logrus.Fatal("-csv is required")
	}
	commitMode := inventory.CommitMode(strings.ToLower(strings.TrimSpace(*mode)))
	if commitMode != inventory.ModeAdd && commitMode != inventory.ModeMerge {
		logrus.Fatalf("unknown mode %q (want add or merge)", *mode)
	}

	candidates, err := readInventoryCSV(*csvPath)
	if err != nil {
		logrus.Fatalf("read csv: %v", err)
	}
	if len(candidates) == 0 {
		logrus.Fatal("no inventory rows found in csv")
	}

	db, err := store.Open(*dbPath, true)
	if err != nil {
		logrus.Fatalf("open database: %v", err)
	}
	defer func() {
		if cerr := db.Close(); cerr != nil {
			logrus.WithError(cerr).Warn("close database")
		}
	}()

	reconciler := inventory.NewReconciler(db)

	hasDuplicates, labels, err := reconciler.CheckForDuplicates(uint(*shopID), candidates)
	if err != nil {
		logrus.Fatalf("check duplicates: %v", err)
	}
	if hasDuplicates {
		logrus.WithFields(logrus.Fields{
			"duplicates": len(labels),
			"mode":       commitMode,
		}).Warn("candidate rows collide with persisted inventory")
		for _, label := range labels {
			logrus.WithField("item", label).Warn("duplicate key")
		}
	}

	summary, err := reconciler.Commit(uint(*shopID), candidates, commitMode)
	if err != nil {
		logrus.Fatalf("commit inventory: %v", err)
	}
	logrus.WithFields(logrus.Fields{
		"inserted": summary.Inserted,
		"updated":  summary.Updated,
		"failed":   summary.Failed,
		"shop":     *shopID,
	}).Info("inventory seed complete")
}

func readInventoryCSV(path string) ([]inventory.Candidate, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := csv.NewReader(bufio.NewReader(file))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var candidates []inventory.Candidate
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		if len(row) < 3 {
			continue
		}
		brand := strings.TrimSpace(row[0])
		if brand == "" || strings.EqualFold(brand, "brand") {
			continue
		}
		cand := inventory.Candidate{
			Brand: brand,
			Model: strings.TrimSpace(row[1]),
			Size:  strings.TrimSpace(row[2]),
		}
		if len(row) > 3 {
			if qty, err := strconv.Atoi(strings.TrimSpace(row[3])); err == nil {
				cand.Quantity = qty
			}
		}
		if len(row) > 4 {
			if price, err := strconv.ParseFloat(strings.TrimSpace(row[4]), 64); err == nil {
				cand.Price = price
			}
		}
		candidates = append(candidates, cand)
	}
	return candidates, nil
}
