package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"chatsock/backend/internal/bus"
	"chatsock/backend/internal/chathub"
	"chatsock/backend/internal/config"
	"chatsock/backend/internal/models"
	"chatsock/backend/internal/storage"

	"github.com/redis/go-redis/v9"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	cfg, err := config.Read()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	command := os.Args[1]

	switch command {
	case models.CommandJoinRoom, models.CommandLeaveRoom:
		if len(os.Args) != 4 {
			fmt.Printf("Usage: admin %s <user_id> <room>\n", command)
			os.Exit(1)
		}
		userID := parseUserID(os.Args[2])
		b, err := bus.New(cfg.Bus.Driver, cfg.Bus.NatsURL, "chatsock-admin", rdb)
		if err != nil {
			log.Fatalf("failed to open bus: %v", err)
		}
		defer b.Close()
		if err := sendRoomCommand(ctx, b, cfg.Redis.Prefix, command, userID, os.Args[3]); err != nil {
			log.Fatalf("Error sending %s: %v", command, err)
		}
		fmt.Printf("Sent %s for user %d and room %s.\n", command, userID, os.Args[3])
	case "presence":
		if len(os.Args) != 3 {
			fmt.Println("Usage: admin presence <user_id>")
			os.Exit(1)
		}
		userID := parseUserID(os.Args[2])
		store := storage.NewStorageService(rdb, cfg.Redis.Prefix)
		if err := printPresence(ctx, store, cfg.Domain, userID); err != nil {
			log.Fatalf("Error reading presence: %v", err)
		}
	default:
		fmt.Println("Unknown command")
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Println("Usage: admin <command> [args]")
	fmt.Println("  join-room <user_id> <room>")
	fmt.Println("  leave-room <user_id> <room>")
	fmt.Println("  presence <user_id>")
}

func parseUserID(raw string) int64 {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		fmt.Println("Invalid user ID. Please provide a positive integer.")
		os.Exit(1)
	}
	return id
}

func sendRoomCommand(ctx context.Context, b bus.Bus, prefix, command string, userID int64, room string) error {
	payload, err := json.Marshal(models.RoomCommand{Type: command, UserID: models.FlexID(userID), Room: room})
	if err != nil {
		return err
	}
	return b.Publish(ctx, chathub.CommandsChannel(prefix), payload)
}

func printPresence(ctx context.Context, s storage.Storage, domain string, userID int64) error {
	activity, err := s.Activity(ctx, domain, userID)
	if err != nil {
		return err
	}
	count, err := s.ConnectionCount(ctx, userID)
	if err != nil {
		return err
	}

	status := activity["status"]
	if status == "" {
		status = "unknown"
	}
	fmt.Printf("User %d: status=%s connections=%d", userID, status, count)
	if last := activity["last_active"]; last != "" {
		fmt.Printf(" last_active=%s", last)
	}
	fmt.Println()
	return nil
}
