package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/spf13/cobra"

	"github.com/agentsight/agentsight/internal/models"
)

var (
	seedURL      string
	seedCount    int
	seedInterval time.Duration
	seedSessions int
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Generate and submit synthetic events to a running server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSeed()
	},
}

func init() {
	seedCmd.Flags().StringVar(&seedURL, "url", "http://localhost:4000", "server base URL")
	seedCmd.Flags().IntVar(&seedCount, "count", 100, "number of events to submit")
	seedCmd.Flags().DurationVar(&seedInterval, "interval", 0, "delay between submissions")
	seedCmd.Flags().IntVar(&seedSessions, "sessions", 5, "number of distinct sessions to spread events across")
	rootCmd.AddCommand(seedCmd)
}

var seedEventTypes = []string{
	"tool_use", "tool_result", "user_prompt", "assistant_message",
	"session_start", "session_end", "error",
}

var seedSourceApps = []string{
	"code-assistant", "review-bot", "doc-writer", "test-runner",
}

func runSeed() error {
	gofakeit.Seed(time.Now().UnixNano())

	sessions := make([]string, seedSessions)
	for i := range sessions {
		sessions[i] = gofakeit.UUID()
	}

	log.Printf("Starting seeder:")
	log.Printf("  URL: %s", seedURL)
	log.Printf("  Event count: %d", seedCount)
	log.Printf("  Sessions: %d", seedSessions)
	log.Printf("  Interval: %v", seedInterval)

	client := &http.Client{Timeout: 10 * time.Second}

	successCount := 0
	failCount := 0

	for i := 0; i < seedCount; i++ {
		event := generateEvent(sessions)
		if err := submitEvent(client, event); err != nil {
			log.Printf("Failed to submit event: %v", err)
			failCount++
		} else {
			successCount++
		}

		if successCount > 0 && successCount%100 == 0 {
			log.Printf("Progress: %d/%d events sent", successCount, seedCount)
		}

		if seedInterval > 0 && i < seedCount-1 {
			time.Sleep(seedInterval)
		}
	}

	log.Printf("Seeding complete:")
	log.Printf("  Success: %d events", successCount)
	log.Printf("  Failed: %d events", failCount)

	if failCount > 0 {
		return fmt.Errorf("%d of %d submissions failed", failCount, seedCount)
	}
	return nil
}

func generateEvent(sessions []string) models.Event {
	eventType := seedEventTypes[rand.Intn(len(seedEventTypes))]

	payload := map[string]interface{}{
		"message": gofakeit.Sentence(8),
	}
	switch eventType {
	case "tool_use", "tool_result":
		payload["tool"] = gofakeit.RandomString([]string{"read_file", "write_file", "run_command", "search"})
		payload["duration_ms"] = gofakeit.Number(5, 5000)
	case "error":
		payload["error"] = gofakeit.HackerPhrase()
	}
	data, _ := json.Marshal(payload)

	return models.Event{
		EventType: eventType,
		SourceApp: seedSourceApps[rand.Intn(len(seedSourceApps))],
		SessionID: sessions[rand.Intn(len(sessions))],
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Data:      data,
	}
}

func submitEvent(client *http.Client, event models.Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	resp, err := client.Post(seedURL+"/events", "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("post event: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server returned %d", resp.StatusCode)
	}
	return nil
}
