// chats CLI - Command line client for the chats API
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/eldtechnologies/chats/clients/go/chats"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	baseURL := os.Getenv("CHATS_URL")
	client := chats.NewClient(baseURL)
	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "health":
		resp, err := client.Health()
		exitOnError(err)
		printJSON(resp)

	case "register":
		need(args, 2, "chats register <username> <password>")
		user, err := client.Register(args[0], args[1])
		exitOnError(err)
		fmt.Printf("Registered as: %s (%s)\n", user.Username, user.ID)

	case "login":
		need(args, 2, "chats login <username> <password>")
		resp, err := client.Login(args[0], args[1], true)
		exitOnError(err)
		fmt.Printf("Logged in until %s\n", resp.ExpiresAt.Local().Format("2006-01-02 15:04:05"))

	case "me":
		user, err := client.Me()
		exitOnError(err)
		printJSON(user)

	case "conversations":
		convs, err := client.ListConversations()
		exitOnError(err)
		for _, c := range convs {
			title := c.Title
			if title == "" {
				title = "(untitled)"
			}
			fmt.Printf("  %s  %s (%d participants)\n", c.ID, title, len(c.Participants))
		}

	case "create":
		need(args, 1, "chats create <title> [user_id...]")
		conv, err := client.CreateConversation(args[0], args[1:]...)
		exitOnError(err)
		fmt.Printf("Created: %s\n", conv.ID)

	case "invite":
		need(args, 2, "chats invite <conversation_id> <user_id>")
		exitOnError(client.AddParticipant(args[0], args[1]))
		fmt.Println("participant added")

	case "post":
		need(args, 2, "chats post <conversation_id> <message>")
		msg, err := client.PostMessage(args[0], strings.Join(args[1:], " "))
		exitOnError(err)
		fmt.Printf("Posted: %s\n", msg.ID)

	case "read":
		convID := ""
		if len(args) > 0 {
			convID = args[0]
		}
		msgs, err := client.GetMessages(convID, 0, 0)
		exitOnError(err)
		printMessages(msgs)

	case "recent":
		convID := ""
		if len(args) > 0 {
			convID = args[0]
		}
		msgs, err := client.Recent(convID)
		exitOnError(err)
		printMessages(msgs)

	case "help", "--help", "-h":
		usage()

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Println(`chats CLI

Usage: chats <command> [options]

Commands:
  register <username> <password>   Create an account
  login <username> <password>      Log in and save the token
  me                               Show the logged-in user
  conversations                    List your conversations
  create <title> [user_id...]      Create a conversation
  invite <conversation> <user_id>  Add a participant
  post <conversation> <message>    Post a message
  read [conversation]              Read messages, oldest first
  recent [conversation]            Show the 10 newest messages
  health                           Check server health

Environment:
  CHATS_URL      Server URL (default: http://localhost:8080)
  CHATS_CONFIG   Config directory (default: ~/.chats)`)
}

func need(args []string, n int, usageLine string) {
	if len(args) < n {
		fmt.Fprintln(os.Stderr, "Usage:", usageLine)
		os.Exit(1)
	}
}

func printMessages(msgs []chats.Message) {
	for _, msg := range msgs {
		ts := msg.Timestamp.Local().Format("2006-01-02 15:04:05")
		from := msg.Sender
		if len(from) > 8 {
			from = from[:8]
		}
		fmt.Printf("[%s] %s: %s\n", ts, from, msg.Body)
	}
}

func exitOnError(err error) {
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func printJSON(v any) {
	data, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(data))
}
