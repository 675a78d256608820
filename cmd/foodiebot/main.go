package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jcmexdev/foodie-storefront/internal/assistant"
	"github.com/jcmexdev/foodie-storefront/internal/pkg/telemetry"
)

// foodiebot is a terminal front end for the storefront's chat relay.
func main() {
	telemetry.InitLogger(getEnv("LOG_LEVEL", "warn"))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	conv := assistant.NewConversation(getEnv("RELAY_URL", "http://localhost:8080/api/chat"), nil)
	fmt.Println("FoodieBot:", assistant.Greeting)

	in := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !in.Scan() {
			break
		}
		text := strings.TrimSpace(in.Text())
		if text == "/quit" {
			break
		}

		printed := 0
		fmt.Print("FoodieBot: ")
		reply, err := conv.Send(ctx, text, func(content string) {
			// the final body may be an envelope; only raw text is echoed live
			if strings.HasPrefix(content, "{") {
				return
			}
			fmt.Print(content[printed:])
			printed = len(content)
		})
		switch {
		case errors.Is(err, assistant.ErrEmptyInput):
			fmt.Println()
			continue
		case err != nil:
			slog.Warn("relay failed", "error", err)
			if printed > 0 {
				fmt.Println()
				printed = 0
			}
		}
		if printed == 0 {
			fmt.Print(reply.Content)
		}
		fmt.Println()

		if ctx.Err() != nil {
			break
		}
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
