package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"threadchat/internal/config"
	"threadchat/internal/directory"
	"threadchat/internal/engine"
	"threadchat/internal/llm"
	"threadchat/internal/store"
	"threadchat/internal/tools"
)

var rootCmd = &cobra.Command{
	Use:   "chat",
	Short: "Conversational assistant with resumable threads",
	Long: `An assistant that routes messages through a language model, invoking
calculator, stock-quote and web-search tools when needed. Conversations are
persisted per thread and can be listed, renamed, pinned and resumed.`,
	RunE: runChat,
}

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Debugf(".env file not found: %v", err)
	}

	rootCmd.AddCommand(
		newListCommand(),
		newNewCommand(),
		newRenameCommand(),
		newPinCommand(),
		newDeleteCommand(),
	)

	if err := rootCmd.Execute(); err != nil {
		log.WithError(err).Fatal("could not execute root command")
	}
}

// setup loads config, opens the store and hydrates the directory.
func setup() (*config.Config, store.Storer, *directory.Directory, error) {
	cfg, err := config.New()
	if err != nil {
		return nil, nil, nil, err
	}
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, nil, nil, err
	}
	log.SetLevel(level)

	st, err := store.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		return nil, nil, nil, err
	}

	dir := directory.New(st)
	if err := dir.Hydrate(); err != nil {
		_ = st.Close()
		return nil, nil, nil, err
	}
	return cfg, st, dir, nil
}

func runChat(cmd *cobra.Command, args []string) error {
	cfg, st, dir, err := setup()
	if err != nil {
		return err
	}
	defer st.Close()

	if cfg.OpenAIAPIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is not set")
	}

	model := llm.NewOpenAI(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel)
	reg := tools.NewRegistry(
		tools.NewStockClient(cfg.AlphaVantageAPIKey, cfg.ToolHTTPTimeout),
		tools.NewSearchClient(cfg.ToolHTTPTimeout),
		log.WithField("component", "tools"),
	)
	eng := engine.New(model, reg, st, log.WithField("component", "engine"), readSystemPrompt(cfg.SystemPromptPath))

	// resume the most recent thread, or start fresh
	var current string
	if view := dir.SortedView(); len(view) > 0 {
		current = view[0].ThreadID
		printThread(st, current)
	} else {
		current = dir.Create()
	}

	fmt.Println("Type a message, /new, /list, /switch <n>, or /quit.")
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		switch {
		case line == "/quit":
			return nil
		case line == "/new":
			current = dir.Create()
			fmt.Println("Started a new chat.")
			continue
		case line == "/list":
			printView(dir.SortedView(), current)
			continue
		case strings.HasPrefix(line, "/switch "):
			n := 0
			if _, err := fmt.Sscanf(line, "/switch %d", &n); err != nil {
				fmt.Println("usage: /switch <number from /list>")
				continue
			}
			view := dir.SortedView()
			if n < 1 || n > len(view) {
				fmt.Println("no such thread")
				continue
			}
			current = view[n-1].ThreadID
			printThread(st, current)
			continue
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), cfg.EngineTimeout)
		turn, err := eng.Stream(ctx, current, line, func(frag string) {
			fmt.Print(frag)
		})
		cancel()
		fmt.Println()
		if err != nil {
			// the submitted message is already persisted; the user can retry
			log.WithError(err).Error("assistant reply failed")
			fmt.Println("Sorry, something went wrong. Your message was saved - try again.")
			continue
		}
		dir.AutoTitle(current, line)
		dir.Touch(current, turn.CreatedAt)
	}
}

func newListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List threads, pinned first, most recent first",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, st, dir, err := setup()
			if err != nil {
				return err
			}
			defer st.Close()
			printView(dir.SortedView(), "")
			return nil
		},
	}
}

func newNewCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "new",
		Short: "Create a new thread and print its id",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, st, dir, err := setup()
			if err != nil {
				return err
			}
			defer st.Close()
			fmt.Println(dir.Create())
			return nil
		},
	}
}

func newRenameCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "rename <thread-id> <title>",
		Short: "Set a permanent title for a thread",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, st, dir, err := setup()
			if err != nil {
				return err
			}
			defer st.Close()
			return dir.Rename(args[0], strings.Join(args[1:], " "))
		},
	}
}

func newPinCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "pin <thread-id>",
		Short: "Toggle a thread's pinned state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, st, dir, err := setup()
			if err != nil {
				return err
			}
			defer st.Close()
			pinned, err := dir.TogglePin(args[0])
			if err != nil {
				return err
			}
			if pinned {
				fmt.Println("pinned")
			} else {
				fmt.Println("unpinned")
			}
			return nil
		},
	}
}

func newDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <thread-id>",
		Short: "Delete a thread and all its metadata",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, st, dir, err := setup()
			if err != nil {
				return err
			}
			defer st.Close()
			return dir.Remove(args[0])
		},
	}
}

func printView(view []directory.Entry, current string) {
	if len(view) == 0 {
		fmt.Println("No chats yet.")
		return
	}
	for i, e := range view {
		marker := " "
		if e.ThreadID == current {
			marker = "*"
		}
		pin := " "
		if e.Pinned {
			pin = "+"
		}
		when := time.UnixMilli(e.LastActive).Format("2006-01-02 15:04")
		fmt.Printf("%s %2d. [%s] %-35s %s  %s\n", marker, i+1, pin, e.Title, when, e.ThreadID)
	}
}

func printThread(st store.Storer, threadID string) {
	turns, err := st.ReadThread(threadID)
	if err != nil {
		log.WithError(err).Error("could not load thread")
		return
	}
	for _, t := range turns {
		switch t.Role {
		case store.RoleUser:
			fmt.Printf("you: %s\n", t.Content)
		case store.RoleAssistant:
			fmt.Printf("assistant: %s\n", t.Content)
		}
	}
}

func readSystemPrompt(path string) string {
	if path == "" {
		return ""
	}
	b, err := os.ReadFile(path)
	if err != nil {
		log.Warnf("failed to read system prompt %s: %v", path, err)
		return ""
	}
	return strings.TrimSpace(string(b))
}
