package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/chzyer/readline"
	"github.com/rs/zerolog"
	"golang.org/x/term"

	"aliengine/internal/chat"
	"aliengine/internal/config"
	"aliengine/internal/engine"
	"aliengine/internal/session"
)

// runREPL starts an interactive console talking to the configured model,
// with every assistant reply run through the directive engine.
func runREPL(cfg *config.Config, logger zerolog.Logger) {
	logger.Debug().Msg("Running in REPL mode")

	eng := engine.New(cfg.EngineOptions(), logger)

	chatOpts := chat.Options{
		APIKey:         cfg.APIKey,
		APIURL:         cfg.APIURL,
		DeepSeekAPIKey: cfg.DeepSeekAPIKey,
	}
	if cfg.Temperature != nil {
		chatOpts.Temperature = *cfg.Temperature
	}
	if cfg.MaxTokens != nil {
		chatOpts.MaxTokens = *cfg.MaxTokens
	}
	client := chat.NewClient(chatOpts, logger)

	store := session.NewStore(cfg.HistoryMaxMessages, cfg.SessionTTL(), logger)
	sess := store.GetOrCreate("", cfg.Model)

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "❯ ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize readline")
	}
	defer rl.Close()

	if term.IsTerminal(int(os.Stdin.Fd())) {
		fmt.Println("ALI engine console")
		fmt.Printf("Model in use: %s\n", cfg.Model)
		if !client.HasProvider() {
			fmt.Println("No API key configured, responses are mocked")
		}
		fmt.Println("Ctrl+C or /quit to exit")
		fmt.Println()
	}

	for {
		line, err := rl.Readline()
		if err != nil {
			// EOF or interrupt
			logger.Debug().Msg("Readline interrupted")
			break
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if line == "/quit" || line == "/exit" {
			break
		}

		logger.Info().Str("user_input", line).Msg("User input received")

		history := store.History(sess.ID)
		turns := make([]chat.Turn, 0, len(history))
		for _, msg := range history {
			turns = append(turns, chat.Turn{Role: msg.Role, Content: msg.Content})
		}
		store.Append(sess.ID, session.Message{Role: "user", Content: line})

		reply, _, err := client.Complete(context.Background(), cfg.Model, "", turns, line)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			continue
		}

		processed, results := eng.Process(context.Background(), reply)
		store.Append(sess.ID, session.Message{Role: "assistant", Content: processed, Results: results})

		fmt.Println(processed)
		fmt.Println()
	}

	logger.Info().Msg("Session ended")
}
