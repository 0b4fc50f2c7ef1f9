// vetagent-chat runs a single interactive consultation on the terminal.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/pawsense/vetagent/internal/app"
	"github.com/pawsense/vetagent/internal/config"
	"github.com/pawsense/vetagent/internal/llm"
	"github.com/pawsense/vetagent/pkg/types"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file (optional)")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	store, err := app.NewVectorStore(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize vector store: %v", err)
	}
	defer store.Close()

	sessions, err := app.NewSessionStore(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize session store: %v", err)
	}
	defer sessions.Close()

	client := app.NewLLMClient(cfg)
	retriever := app.NewRetriever(cfg, store, client, app.NewReranker(cfg))
	engine := app.NewEngine(cfg, client, retriever, sessions)

	ctx := context.Background()
	fmt.Printf("Assistant: %s\n", llm.DefaultOpeningQuestion)

	var sessionID string
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("You: ")
		if !scanner.Scan() {
			break
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if input == "quit" || input == "exit" {
			break
		}

		result, err := engine.HandleMessage(ctx, sessionID, input)
		if err != nil {
			log.Printf("turn failed: %v", err)
			continue
		}
		sessionID = result.SessionID
		fmt.Printf("Assistant: %s\n", result.Response)

		if result.Status == types.StatusEnd {
			fmt.Println("(consultation complete)")
			break
		}
	}
}
