// Package main is a terminal chat client for trying the relay by hand.
//
// Lines starting with "/" are commands; anything else is sent to the open chat.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"chat-relay/internal/client"
	"chat-relay/internal/models"
)

var (
	serverURL = flag.String("server", "http://localhost:3001", "relay base URL")
	token     = flag.String("token", os.Getenv("CHAT_TOKEN"), "bearer token (defaults to $CHAT_TOKEN)")
	chatID    = flag.String("chat", "", "chat to open on start")
)

const help = `commands:
  /open <chatId>   open a chat and show its history
  /upload <path>   attach a file to the next message
  /unseen          list unseen messages
  /quit            exit`

func main() {
	flag.Parse()
	if *token == "" {
		log.Fatal("-token or $CHAT_TOKEN is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	api := client.NewHTTPAPI(*serverURL, *token)
	wsURL := "ws" + strings.TrimPrefix(strings.TrimRight(*serverURL, "/"), "http") + "/ws"
	session, err := client.Dial(ctx, wsURL, *token, api)
	if err != nil {
		log.Fatalf("connect: %v", err)
	}
	defer session.Close()

	session.OnEvent = func(ev models.Event) { printEvent(session, ev) }
	go func() {
		if err := session.Run(ctx); err != nil {
			log.Printf("connection lost: %v", err)
		}
		stop()
	}()

	fmt.Printf("connected as %s\n%s\n", session.UserID(), help)
	if *chatID != "" {
		openChat(ctx, session, *chatID)
	}

	composer := client.NewComposer(session)
	lines := make(chan string)
	go func() {
		sc := bufio.NewScanner(os.Stdin)
		for sc.Scan() {
			lines <- sc.Text()
		}
		close(lines)
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			if !handleLine(ctx, session, api, composer, line) {
				return
			}
		}
	}
}

func handleLine(ctx context.Context, s *client.Session, api *client.HTTPAPI, c *client.Composer, line string) bool {
	cmd, arg, _ := strings.Cut(strings.TrimSpace(line), " ")
	switch cmd {
	case "":
	case "/quit":
		return false
	case "/open":
		openChat(ctx, s, arg)
	case "/upload":
		res, err := api.Upload(ctx, arg)
		if err != nil {
			fmt.Printf("! upload failed: %v\n", err)
			break
		}
		c.Attach(res)
		fmt.Printf("attached %s (%s, %d bytes)\n", res.FileName, res.FileType, res.FileSize)
	case "/unseen":
		for _, u := range s.Notifications.Items() {
			fmt.Printf("  [%s] %s: %s\n", u.ChatName, u.SenderName, u.Preview)
		}
	default:
		if strings.HasPrefix(cmd, "/") {
			fmt.Println(help)
			break
		}
		c.Type(line)
		if _, err := c.Send(ctx); err != nil {
			fmt.Printf("! not sent (draft kept): %v\n", err)
		}
	}
	return true
}

func openChat(ctx context.Context, s *client.Session, id string) {
	if err := s.OpenChat(ctx, id); err != nil {
		fmt.Printf("! %v\n", err)
		return
	}
	for _, b := range client.Render(s.Transcript.Messages(), s.UserID()) {
		printBubble(b)
	}
}

func printBubble(b client.Bubble) {
	if !b.Tight {
		fmt.Println()
	}
	body := b.Message.Content
	if a := b.Message.Attachment; a != nil {
		body = strings.TrimSpace(fmt.Sprintf("%s [%s %s]", body, b.Kind, a.URL))
	}
	switch {
	case b.Mine:
		fmt.Printf("%60s\n", body)
	case b.ShowAvatar:
		fmt.Printf("(%s) %s\n", initial(b.Message.Sender.Name), body)
	default:
		fmt.Printf("    %s\n", body)
	}
}

func printEvent(s *client.Session, ev models.Event) {
	switch ev.Event {
	case models.EventMessageReceived:
		if ev.Message == nil {
			return
		}
		if ev.Message.ChatID == s.Viewing() {
			bubbles := client.Render(s.Transcript.Messages(), s.UserID())
			if len(bubbles) > 0 {
				printBubble(bubbles[len(bubbles)-1])
			}
			return
		}
		fmt.Printf("* new message from %s (%d unseen)\n", ev.Message.Sender.Name, s.Notifications.Len())
	case models.EventTyping:
		if ev.ChatID == s.Viewing() {
			fmt.Println("  ...typing")
		}
	case models.EventError:
		fmt.Printf("! %s\n", ev.Error)
	}
}

func initial(name string) string {
	for _, r := range name {
		return strings.ToUpper(string(r))
	}
	return "?"
}
