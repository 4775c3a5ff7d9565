// Package main provides a tool to seed the database with test visits and friendships.
//
// It creates users with display names, gives each of them visits (a few in
// the legacy image-key shapes older clients wrote), befriends random pairs and
// leaves some friend requests pending. Access tokens for the first few users
// are printed, signed with the server's local PASETO key.
//
// Usage:
//
//	DATA_PATH=~/.pilgrim go run ./cmd/seed
//	DATA_PATH=~/.pilgrim go run ./cmd/seed -users 50 -visits 30 -tokens 5
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"math/rand/v2"
	"os"
	"path/filepath"
	"time"

	"github.com/pilgrimapp/pilgrim-server/internal/auth"
	"github.com/pilgrimapp/pilgrim-server/internal/domain"
	"github.com/pilgrimapp/pilgrim-server/internal/id"
	"github.com/pilgrimapp/pilgrim-server/internal/logger"
	"github.com/pilgrimapp/pilgrim-server/internal/store"
)

var (
	userCount   = flag.Int("users", 10, "Number of users to create")
	visitsEach  = flag.Int("visits", 15, "Maximum visits per user")
	friendRatio = flag.Float64("friends", 0.3, "Probability that a pair of users are friends")
	pendingRate = flag.Float64("pending", 0.1, "Probability that a non-friend pair has a pending request")
	tokenCount  = flag.Int("tokens", 3, "Number of users to print access tokens for")
	tokenTTL    = flag.Duration("token-ttl", 24*time.Hour, "Lifetime of printed access tokens")
)

var placeNames = []string{
	"Hagia Sophia", "Blue Mosque", "Santiago de Compostela", "Lourdes",
	"Mount Athos", "Varanasi Ghats", "Bodh Gaya", "Kyoto Fushimi Inari",
	"Western Wall", "Church of the Holy Sepulchre", "Canterbury Cathedral",
	"Fatima Sanctuary", "Mount Kailash", "Shikoku Temple 1", "Iona Abbey",
}

var displayNames = []string{
	"Ayşe", "Bruno", "Chiara", "Dmitri", "Elif", "Farah", "Gustavo",
	"Hiro", "Ines", "Jonas", "Kemal", "Lucía", "Mehmet", "Noor",
}

func main() {
	flag.Parse()

	dataPath := os.Getenv("DATA_PATH")
	if dataPath == "" {
		dataPath = os.ExpandEnv("$HOME/.pilgrim")
	}
	dbPath := os.Getenv("DB_PATH")
	if dbPath == "" {
		dbPath = filepath.Join(dataPath, "db")
	}

	fmt.Printf("Opening database at: %s\n", dbPath)

	quiet := logger.New(logger.Config{Level: slog.LevelWarn})
	s, err := store.New(dbPath, store.DefaultCollections(), quiet.Logger)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer s.Close()

	ctx := context.Background()
	rng := rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0))

	users := createUsers(ctx, s, rng)
	fmt.Printf("Created %d users\n", len(users))

	bw := s.NewBatchWriter(1000)

	visits := 0
	for _, u := range users {
		n := seedVisits(bw, u, rng)
		visits += n
	}

	friendships, pending := 0, 0
	for i, a := range users {
		for _, b := range users[i+1:] {
			switch {
			case rng.Float64() < *friendRatio:
				if err := bw.PutFriendship(a, b); err != nil {
					log.Fatalf("Failed to write friendship: %v", err)
				}
				friendships++
			case rng.Float64() < *pendingRate:
				// Requests go through the store's conditional insert, not the batch.
				if err := bw.Flush(); err != nil {
					log.Fatalf("Failed to flush batch: %v", err)
				}
				if err := s.InsertFriendRequestIfAbsent(ctx, b, a); err != nil {
					log.Printf("Failed to create request %s -> %s: %v", a, b, err)
					continue
				}
				pending++
			}
		}
	}

	if err := bw.Flush(); err != nil {
		log.Fatalf("Failed to flush batch: %v", err)
	}

	fmt.Printf("\n=== Seeding Complete ===\n")
	fmt.Printf("Users:            %d\n", len(users))
	fmt.Printf("Visits:           %d\n", visits)
	fmt.Printf("Friendships:      %d\n", friendships)
	fmt.Printf("Pending requests: %d\n", pending)

	if err := printTokens(dataPath, users); err != nil {
		log.Fatalf("Failed to mint tokens: %v", err)
	}
}

// printTokens mints access tokens with the key the server loads from dataPath
// when AUTH_MODE=paseto.
func printTokens(dataPath string, users []string) error {
	n := min(*tokenCount, len(users))
	if n == 0 {
		return nil
	}

	keyHex, err := auth.LoadOrGenerateKey(dataPath)
	if err != nil {
		return err
	}
	tokens, err := auth.NewTokenService(keyHex, *tokenTTL)
	if err != nil {
		return err
	}

	fmt.Printf("\n=== Access Tokens (valid %s) ===\n", *tokenTTL)
	for _, sub := range users[:n] {
		token, err := tokens.GenerateAccessToken(sub, sub+"@seed.example.com")
		if err != nil {
			return fmt.Errorf("user %s: %w", sub, err)
		}
		fmt.Printf("%s\n  %s\n", sub, token)
	}
	return nil
}

func createUsers(ctx context.Context, s *store.Store, rng *rand.Rand) []string {
	users := make([]string, 0, *userCount)
	for range *userCount {
		sub := id.MustGenerate("seed")
		if _, err := s.TouchUser(ctx, sub, sub+"@seed.example.com"); err != nil {
			log.Printf("Failed to create user %s: %v", sub, err)
			continue
		}

		name := displayNames[rng.IntN(len(displayNames))]
		if err := s.SaveUserProfile(ctx, &domain.UserProfile{UserID: sub, DisplayName: name}); err != nil {
			log.Printf("Failed to save profile for %s: %v", sub, err)
		}
		users = append(users, sub)
		fmt.Printf("  Created user: %s (%s)\n", name, sub)
	}
	return users
}

// seedVisits writes up to -visits documents for user and returns how many.
func seedVisits(bw *store.BatchWriter, user string, rng *rand.Rand) int {
	n := rng.IntN(*visitsEach + 1)
	now := time.Now().UTC()

	for i := range n {
		placeID := fmt.Sprintf("place-%03d", rng.IntN(200))
		name := placeNames[rng.IntN(len(placeNames))]
		visited := now.AddDate(0, 0, -rng.IntN(3*365))

		doc := map[string]any{
			"user_id":    user,
			"place_id":   placeID,
			"place_name": name,
			"visit_date": visited.Format(domain.DateLayout),
			"timestamp":  visited.Add(time.Duration(rng.IntN(86400)) * time.Second),
		}
		if rng.IntN(4) > 0 {
			doc["rating"] = float64(rng.IntN(11)) / 2
		}

		key := fmt.Sprintf("%s/%s/%d.jpg", user, placeID, visited.UnixMilli())
		switch i % 5 {
		case 0:
			// Older clients stored a comma-separated string and no timestamp.
			doc["image_keys"] = key + "," + key
			delete(doc, "timestamp")
		case 1:
			doc["images"] = map[string]any{"values": []string{key}}
		default:
			doc["image_keys"] = []string{key}
		}

		raw, err := json.Marshal(doc)
		if err != nil {
			log.Fatalf("Failed to marshal visit: %v", err)
		}
		if err := bw.PutVisitDocument(user, placeID, raw); err != nil {
			log.Fatalf("Failed to write visit: %v", err)
		}
	}
	return n
}
