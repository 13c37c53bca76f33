// coworkctl - command line client for CoWork Connect
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/chloekuoi/cowork-connect/clients/go/cowork"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	baseURL := os.Getenv("COWORK_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}

	client := cowork.NewClient(baseURL)
	cmd := os.Args[1]

	switch cmd {
	case "health":
		resp, err := client.Health()
		exitOnError(err)
		printJSON(resp)

	case "signup":
		if len(os.Args) < 5 {
			fmt.Fprintln(os.Stderr, "Usage: coworkctl signup <email> <password> <name>")
			os.Exit(1)
		}
		resp, err := client.Signup(os.Args[2], os.Args[3], os.Args[4])
		exitOnError(err)
		fmt.Printf("Signed up as: %s\n", resp.Profile.ID)

	case "login":
		if len(os.Args) < 4 {
			fmt.Fprintln(os.Stderr, "Usage: coworkctl login <email> <password>")
			os.Exit(1)
		}
		resp, err := client.Login(os.Args[2], os.Args[3])
		exitOnError(err)
		fmt.Printf("Logged in as: %s\n", resp.Profile.ID)

	case "me":
		resp, err := client.Me()
		exitOnError(err)
		printJSON(resp)

	case "who":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "Usage: coworkctl who <user_id>")
			os.Exit(1)
		}
		resp, err := client.Who(os.Args[2])
		exitOnError(err)
		printJSON(resp)

	case "intent":
		if len(os.Args) < 5 {
			fmt.Fprintln(os.Stderr, "Usage: coworkctl intent <task> <lat> <lon> [location_name]")
			os.Exit(1)
		}
		lat, err := strconv.ParseFloat(os.Args[3], 64)
		exitOnError(err)
		lon, err := strconv.ParseFloat(os.Args[4], 64)
		exitOnError(err)
		intent := cowork.WorkIntent{
			TaskDescription: os.Args[2],
			Latitude:        lat,
			Longitude:       lon,
		}
		if len(os.Args) > 5 {
			intent.LocationName = os.Args[5]
		}
		resp, err := client.SetIntent(intent)
		exitOnError(err)
		fmt.Printf("Intent set for %s\n", resp.IntentDate)

	case "discover":
		cards, err := client.Discover("")
		exitOnError(err)
		if len(cards) == 0 {
			fmt.Println("No one nearby today.")
			return
		}
		for _, card := range cards {
			fmt.Printf("  %s  %s (%.1f km) - %s\n",
				card.Profile.ID, card.Profile.Name, card.Distance, card.Intent.TaskDescription)
		}

	case "swipe":
		if len(os.Args) < 4 {
			fmt.Fprintln(os.Stderr, "Usage: coworkctl swipe <user_id> <right|left>")
			os.Exit(1)
		}
		resp, err := client.Swipe(os.Args[2], os.Args[3])
		exitOnError(err)
		if resp.Matched {
			fmt.Printf("It's a match! Match ID: %s\n", resp.Match.ID)
		} else {
			fmt.Println("Swipe recorded.")
		}

	case "matches":
		previews, err := client.Matches()
		exitOnError(err)
		for _, p := range previews {
			fmt.Printf("  %s  %s", p.MatchID, p.OtherUser.Name)
			if p.UnreadCount > 0 {
				fmt.Printf(" (%d unread)", p.UnreadCount)
			}
			if p.LastMessage != "" {
				fmt.Printf("  %q", p.LastMessage)
			}
			fmt.Println()
		}

	case "chat":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "Usage: coworkctl chat <match_id>")
			os.Exit(1)
		}
		showChat(client, os.Args[2])

	case "send":
		if len(os.Args) < 4 {
			fmt.Fprintln(os.Stderr, "Usage: coworkctl send <match_id> <message>")
			os.Exit(1)
		}
		msg, err := client.SendMessage(os.Args[2], os.Args[3])
		exitOnError(err)
		fmt.Printf("Sent: %s\n", msg.ID)

	case "propose":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "Usage: coworkctl propose <match_id> [date]")
			os.Exit(1)
		}
		date := ""
		if len(os.Args) > 3 {
			date = os.Args[3]
		}
		sess, err := client.ProposeSession(os.Args[2], date)
		exitOnError(err)
		fmt.Printf("Proposed session %s for %s\n", sess.ID, sess.ScheduledDate)

	case "accept", "decline":
		if len(os.Args) < 3 {
			fmt.Fprintf(os.Stderr, "Usage: coworkctl %s <session_id>\n", cmd)
			os.Exit(1)
		}
		response := cowork.ResponseAccept
		if cmd == "decline" {
			response = cowork.ResponseDecline
		}
		sess, err := client.RespondToSession(os.Args[2], response)
		exitOnError(err)
		fmt.Printf("Session %s is now %s\n", sess.ID, sess.Status)

	case "cancel":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "Usage: coworkctl cancel <session_id>")
			os.Exit(1)
		}
		sess, err := client.CancelSession(os.Args[2])
		exitOnError(err)
		fmt.Printf("Session %s cancelled\n", sess.ID)

	case "lockin":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "Usage: coworkctl lockin <session_id>")
			os.Exit(1)
		}
		sess, err := client.LockInSession(os.Args[2])
		exitOnError(err)
		if sess.Status == cowork.StatusCompleted {
			fmt.Println("Session completed!")
		} else {
			fmt.Println("Locked in. Waiting for the other side.")
		}

	case "unread":
		count, err := client.Unread()
		exitOnError(err)
		fmt.Printf("%d unread\n", count)

	case "help", "--help", "-h":
		usage()

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		usage()
		os.Exit(1)
	}
}

// showChat renders the reconciled timeline for a match, oldest first.
func showChat(client *cowork.Client, matchID string) {
	ctrl := cowork.NewChatController(matchID, client, client, nil)
	if err := ctrl.Load(); err != nil {
		fmt.Fprintln(os.Stderr, "Warning:", err)
	}

	items := ctrl.Timeline()
	for i := len(items) - 1; i >= 0; i-- {
		it := items[i]
		ts := it.Time().Local().Format("2006-01-02 15:04")
		switch it.Kind {
		case cowork.ItemMessage:
			from := it.Message.SenderID
			if len(from) > 8 {
				from = from[:8]
			}
			fmt.Printf("[%s] %s: %s\n", ts, from, it.Message.Content)
		case cowork.ItemSession:
			fmt.Printf("[%s] # session %s (%s) scheduled %s\n",
				ts, it.Session.ID, it.Session.Status, it.Session.ScheduledDate)
		default:
			fmt.Printf("[%s] * %s\n", ts, it.Event.Message)
		}
	}

	if toast := ctrl.ActiveToast(); toast != nil {
		fmt.Printf("\n>> %s\n", toast.Text)
	}

	if sess := ctrl.OpenSession(); sess != nil {
		fmt.Printf("\nOpen session %s (%s) scheduled %s\n", sess.ID, sess.Status, sess.ScheduledDate)
	}

	_ = ctrl.MarkRead()
}

func usage() {
	fmt.Println(`coworkctl - CoWork Connect command line client

Usage: coworkctl <command> [options]

Commands:
  signup <email> <pass> <name>   Create an account
  login <email> <pass>           Log in
  me                             Show my profile
  who <user_id>                  Show another user's profile
  intent <task> <lat> <lon>      Declare today's coworking intent
  discover                       List nearby candidates
  swipe <user_id> <right|left>   Swipe on a candidate
  matches                        List matches
  chat <match_id>                Show a chat timeline
  send <match_id> <message>      Send a message
  propose <match_id> [date]      Propose a session
  accept|decline <session_id>    Respond to a session
  cancel <session_id>            Cancel a session
  lockin <session_id>            Lock in an active session
  unread                         Total unread messages
  health                         Check server health

Environment:
  COWORK_URL      Server URL (default: http://localhost:8080)
  COWORK_CONFIG   Config directory (default: ~/.cowork)`)
}

func exitOnError(err error) {
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func printJSON(v interface{}) {
	data, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(data))
}
