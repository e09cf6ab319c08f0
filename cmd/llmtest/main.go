package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	appconfig "github.com/teasertech/ghl-lead-relay/internal/config"
	"github.com/teasertech/ghl-lead-relay/internal/conversation"
	"github.com/teasertech/ghl-lead-relay/pkg/logging"
)

func main() {
	message := flag.String("message", "Quanto custa?", "lead message to classify")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := appconfig.Load()
	if cfg.GeminiAPIKey == "" {
		fmt.Fprintln(os.Stderr, appconfig.ErrMissingGeminiKey)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	gemini, err := conversation.NewGeminiLLMClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModelID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create Gemini client: %v\n", err)
		os.Exit(1)
	}
	defer gemini.Close()

	classifier := conversation.NewClassifier(gemini, conversation.ClassifierConfig{
		FallbackClassification: cfg.FallbackClassification,
	}, logging.New(cfg.LogLevel))

	start := time.Now()
	decision := classifier.Classify(ctx, *message, nil)

	fmt.Printf("model:          %s\n", cfg.GeminiModelID)
	fmt.Printf("message:        %s\n", *message)
	fmt.Printf("elapsed:        %v\n", time.Since(start).Round(time.Millisecond))
	fmt.Printf("classification: %s\n", decision.Result.Classification)
	fmt.Printf("reply:          %s\n", decision.Result.ReplyMessage)
	if decision.Fallback {
		fmt.Printf("fallback:       %v\n", decision.Reason)
		os.Exit(2)
	}
}
