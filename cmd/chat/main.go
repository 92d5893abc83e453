package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"chatline/client"
	"chatline/domain"
	"chatline/domain/event"
	"chatline/errors"

	"github.com/gookit/color"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
	"github.com/olekukonko/tablewriter"
)

const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Chat terminated with error: %v\n", err)
	}
	os.Exit(code)
}

func run() (int, error) {
	_ = godotenv.Load()
	config, err := LoadConfig()
	if err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := client.New(config.ServerURL, log)
	defer c.Close()

	users, err := c.Service("users")
	if err != nil {
		return exitRuntime, err
	}
	messages, err := c.Service("messages")
	if err != nil {
		return exitRuntime, err
	}

	if config.Register {
		_, err := users.Create(ctx, map[string]string{
			"email": config.Email, "password": config.Password,
		})
		if err != nil && !errors.Is(err, errors.ErrUserAlreadyExists) {
			return exitRuntime, fmt.Errorf("registration failed: %w", err)
		}
	}

	session, err := c.Authenticate(ctx, "local", config.Email, config.Password)
	if err != nil {
		return exitRuntime, fmt.Errorf("authentication failed: %w", err)
	}
	fmt.Printf("Signed in as %s\n\n", session.User.Email)

	if err := printUsers(ctx, users); err != nil {
		return exitRuntime, err
	}

	// Handlers must be registered before connecting so no early push is
	// missed.
	messages.On(event.Created, func(record json.RawMessage) {
		printMessage(record, config.Colours, "")
	})
	messages.On(event.Patched, func(record json.RawMessage) {
		printMessage(record, config.Colours, " (edited)")
	})
	messages.On(event.Removed, func(record json.RawMessage) {
		printMessage(record, config.Colours, " (removed)")
	})

	if err := c.Connect(ctx); err != nil {
		return exitRuntime, fmt.Errorf("push stream failed: %w", err)
	}

	if err := printHistory(ctx, messages, config.Colours); err != nil {
		return exitRuntime, err
	}
	fmt.Println("Type a message and press enter. /quit exits.")

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			fmt.Println("\nBye.")
			return exitOK, nil
		case <-c.Done():
			return exitRuntime, fmt.Errorf("%w: push stream closed", errors.ErrTransport)
		case line, ok := <-lines:
			if !ok || strings.TrimSpace(line) == "/quit" {
				fmt.Println("Bye.")
				return exitOK, nil
			}
			if strings.TrimSpace(line) == "" {
				continue
			}
			if _, err := messages.Create(ctx, map[string]string{"body": line}); err != nil {
				fmt.Fprintf(os.Stderr, "Send failed: %v\n", err)
			}
		}
	}
}

func printUsers(ctx context.Context, users *client.Collection) error {
	page, err := users.Find(ctx, client.Query{})
	if err != nil {
		return err
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Email", "Roles", "Joined"})
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)

	for _, raw := range page.Data {
		var user domain.User
		if err := json.Unmarshal(raw, &user); err != nil {
			continue
		}
		table.Append([]string{
			user.Email,
			strings.Join(user.Roles, ","),
			user.CreatedAt.Format("2006-01-02"),
		})
	}

	fmt.Printf("%d users signed up:\n", page.Total)
	table.Render()
	fmt.Println()
	return nil
}

// printHistory renders the latest page oldest first, the way a chat
// log reads.
func printHistory(ctx context.Context, messages *client.Collection, colours bool) error {
	page, err := messages.Find(ctx, client.Query{})
	if err != nil {
		return err
	}
	for i := len(page.Data) - 1; i >= 0; i-- {
		printMessage(page.Data[i], colours, "")
	}
	return nil
}

func printMessage(record json.RawMessage, colours bool, suffix string) {
	var message domain.Message
	if err := json.Unmarshal(record, &message); err != nil {
		return
	}

	author := message.AuthorID
	if message.Author != nil {
		author = message.Author.Email
	}

	header := fmt.Sprintf("[%s] %s", message.CreatedAt.Format("15:04:05"), author)
	if colours {
		header = color.New(color.BgBlack, color.FgGreen).Render(header)
	}
	fmt.Printf("%s %s%s\n", header, message.Body, suffix)
}
