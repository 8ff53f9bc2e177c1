package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"zestro/client/internal/session"
	"zestro/config"
	"zestro/domain"
)

const usage = `usage: zestro [flags] <command> [args]

commands:
  watch                 stream live events until interrupted
  orders                list my orders
  available             list orders open for claiming (Rider)
  accept <id>           accept a placed order (Restaurant)
  claim <id>            claim an order (Rider)
  status <id> <STATUS>  move an order to STATUS
  notifications         list notifications
`

func main() {
	config.Load()

	gateway := flag.String("url", config.Getenv("ZESTRO_URL", "http://localhost:8080"), "gateway base url")
	email := flag.String("email", os.Getenv("ZESTRO_EMAIL"), "account email")
	password := flag.String("password", os.Getenv("ZESTRO_PASSWORD"), "account password")
	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	watching := args[0] == "watch"
	m := session.NewManager(session.Config{
		BaseURL:  *gateway,
		Redis:    config.MustInitRedis(),
		Realtime: watching,
		OnEvent:  printEvent,
	})

	loginCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	ws, err := m.Login(loginCtx, *email, *password)
	cancel()
	if err != nil {
		log.Fatalf("[client] login: %v", err)
	}
	defer ws.Close()

	log.Printf("[client] signed in as %s (%s)", ws.Identity.Name, ws.Identity.Role)

	if err := run(ctx, ws, args); err != nil {
		log.Printf("[client] %s: %v", args[0], err)
		ws.Close()
		os.Exit(1)
	}
}

func run(ctx context.Context, ws *session.Workspace, args []string) error {
	need := func(n int) error {
		if len(args) < n+1 {
			return fmt.Errorf("expected %d argument(s)", n)
		}
		return nil
	}

	switch args[0] {
	case "watch":
		<-ctx.Done()
		return nil

	case "orders":
		for _, o := range ws.Orders.Board().Mine() {
			printOrder(o)
		}

	case "available":
		for _, o := range ws.Orders.Board().Available() {
			printOrder(o)
		}

	case "accept":
		if err := need(1); err != nil {
			return err
		}
		o, err := ws.Orders.Accept(ctx, args[1])
		if err != nil {
			return err
		}
		printOrder(*o)

	case "claim":
		if err := need(1); err != nil {
			return err
		}
		o, err := ws.Orders.Claim(ctx, args[1])
		if err != nil {
			return err
		}
		printOrder(*o)

	case "status":
		if err := need(2); err != nil {
			return err
		}
		o, err := ws.Orders.UpdateStatus(ctx, args[1], domain.Status(args[2]))
		if err != nil {
			return err
		}
		printOrder(*o)

	case "notifications":
		fmt.Printf("%d unread\n", ws.Inbox.Unread())
		for _, n := range ws.Inbox.Items() {
			mark := " "
			if !n.Read {
				mark = "*"
			}
			fmt.Printf("%s %s  %s  %s\n", mark, n.ID, n.CreatedAt.Format(time.RFC822), n.Message)
		}

	default:
		return fmt.Errorf("unknown command %s", strconv.Quote(args[0]))
	}
	return nil
}

func printOrder(o domain.Order) {
	rider := o.RiderID
	if rider == "" {
		rider = "-"
	}
	fmt.Printf("%s  %-9s  total=%s  restaurant=%s  rider=%s\n", o.ID, o.Status, o.Total.StringFixed(2), o.RestaurantID, rider)
}

func printEvent(e domain.Event, changed bool) {
	switch {
	case e.Notification != nil:
		log.Printf("[event] %s %s", e.Type, e.Notification.Message)
	default:
		log.Printf("[event] %s order=%s status=%s rider=%s applied=%t", e.Type, e.OrderID, e.Status, e.RiderID, changed)
	}
}
