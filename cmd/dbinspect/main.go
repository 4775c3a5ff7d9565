// Package main inspects a Pilgrim database read-only and reports record
// counts, stored image-key shapes and relationship consistency problems.
//
// Usage:
//
//	DB_PATH=~/.pilgrim/db go run ./cmd/dbinspect
package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sort"
	"strings"

	"github.com/dgraph-io/badger/v4"

	"github.com/pilgrimapp/pilgrim-server/internal/normalize"
	"github.com/pilgrimapp/pilgrim-server/internal/store"
)

// storedVisit holds only the raw image key attributes.
type storedVisit struct {
	ImageKeys json.RawMessage `json:"image_keys"`
	Images    json.RawMessage `json:"images"`
	Timestamp *string         `json:"timestamp"`
}

func main() {
	dbPath := os.Getenv("DB_PATH")
	if dbPath == "" {
		dbPath = os.ExpandEnv("$HOME/.pilgrim/db")
	}

	opts := badger.DefaultOptions(dbPath).
		WithReadOnly(true).
		WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	cols := store.DefaultCollections()

	fmt.Println("=== Database Inspection ===")
	fmt.Println()

	// Visits: count and image key shapes
	visitCount := 0
	withoutTimestamp := 0
	shapes := map[normalize.ImageKeyShape]int{}

	err = scan(db, cols.Visits, func(_ []string, val []byte) error {
		var v storedVisit
		if err := json.Unmarshal(val, &v); err != nil {
			return err
		}
		visitCount++
		if v.Timestamp == nil {
			withoutTimestamp++
		}
		_, shape := normalize.ImageKeys(v.ImageKeys)
		if shape == normalize.ShapeAbsent {
			_, shape = normalize.ImageKeys(v.Images)
		}
		shapes[shape]++
		return nil
	})
	if err != nil {
		log.Fatalf("Failed to scan visits: %v", err)
	}

	fmt.Printf("Visits: %d (%d without timestamp)\n", visitCount, withoutTimestamp)
	shapeNames := make([]string, 0, len(shapes))
	for shape := range shapes {
		shapeNames = append(shapeNames, string(shape))
	}
	sort.Strings(shapeNames)
	for _, name := range shapeNames {
		fmt.Printf("  image keys %-12s %d\n", name+":", shapes[normalize.ImageKeyShape(name)])
	}

	// Friendships: every edge should have its reverse
	edges := map[[2]string]bool{}
	err = scan(db, cols.Friendships, func(parts []string, _ []byte) error {
		edges[[2]string{parts[0], parts[1]}] = true
		return nil
	})
	if err != nil {
		log.Fatalf("Failed to scan friendships: %v", err)
	}

	oneSided := 0
	for e := range edges {
		if !edges[[2]string{e[1], e[0]}] {
			oneSided++
		}
	}
	fmt.Printf("\nFriendship edges: %d (%d one-sided)\n", len(edges), oneSided)

	// Friend requests: none should be pending between friends or in both directions
	requests := map[[2]string]bool{}
	err = scan(db, cols.FriendRequests, func(parts []string, _ []byte) error {
		requests[[2]string{parts[0], parts[1]}] = true
		return nil
	})
	if err != nil {
		log.Fatalf("Failed to scan friend requests: %v", err)
	}

	betweenFriends, crossed := 0, 0
	for r := range requests {
		if edges[r] || edges[[2]string{r[1], r[0]}] {
			betweenFriends++
		}
		if requests[[2]string{r[1], r[0]}] {
			crossed++
		}
	}
	fmt.Printf("\nPending requests: %d\n", len(requests))
	fmt.Printf("  between friends:      %d\n", betweenFriends)
	fmt.Printf("  crossed (both ways):  %d\n", crossed/2)

	if betweenFriends > 0 || crossed > 0 {
		fmt.Println("\nRelationship records are INCONSISTENT")
		os.Exit(1)
	}
	fmt.Println("\nRelationship records are consistent")
}

// scan calls fn for every primary record in collection with the two key
// parts after the collection name. Index keys live under "idx:" and are skipped.
func scan(db *badger.DB, collection string, fn func(parts []string, val []byte) error) error {
	prefix := []byte(collection + ":")
	return db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			parts := strings.Split(strings.TrimPrefix(string(item.Key()), string(prefix)), ":")
			if len(parts) != 2 {
				continue
			}
			if err := item.Value(func(val []byte) error {
				return fn(parts, val)
			}); err != nil {
				return fmt.Errorf("%s: %w", item.Key(), err)
			}
		}
		return nil
	})
}
