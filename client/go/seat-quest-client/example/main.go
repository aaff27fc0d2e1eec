// client/go/seat-quest-client/example/main.go
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	seatquestclient "github.com/avivl/seat-quest/client/go/seat-quest-client"
)

func main() {
	serverURL := "http://localhost:8080"
	if url := os.Getenv("SEATQUEST_SERVER_URL"); url != "" {
		serverURL = url
	}

	client, err := seatquestclient.NewSeatQuestClient(serverURL, 30*time.Second)
	if err != nil {
		log.Fatalf("Failed to create client: %v", err)
	}
	defer client.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	showID := int64(100)
	seatIDs := []int64{1, 2, 3}

	available, err := client.AvailableSeats(ctx, showID, seatIDs)
	if err != nil {
		log.Fatalf("Failed to query availability: %v", err)
	}
	fmt.Printf("Available seats for show %d: %v\n", showID, available)

	if len(available) < len(seatIDs) {
		log.Fatalf("Not all requested seats are free, wanted %v got %v", seatIDs, available)
	}

	ok, err := client.LockSeats(ctx, showID, seatIDs)
	if err != nil {
		log.Fatalf("Failed to lock seats: %v", err)
	}
	if !ok {
		fmt.Println("Seats were taken by another customer")
		return
	}
	fmt.Printf("Holding seats %v as owner %s\n", seatIDs, client.OwnerID())

	// Keep the hold alive while the customer fills in payment details.
	if err := client.StartHoldRefresh(ctx); err != nil {
		log.Fatalf("Failed to start hold refresh: %v", err)
	}

	// Simulate checkout time.
	select {
	case <-time.After(5 * time.Second):
	case <-ctx.Done():
		client.StopHoldRefresh()
		if _, err := client.UnlockSeats(context.Background(), showID, seatIDs); err != nil {
			log.Printf("Failed to release seats: %v", err)
		}
		return
	}

	client.StopHoldRefresh()

	booking, err := client.CreateBooking(ctx, showID, seatIDs, "Ada Lovelace", "ada@example.com")
	if err != nil {
		log.Fatalf("Failed to create booking: %v", err)
	}
	if booking == nil {
		fmt.Println("Hold expired before checkout completed")
		return
	}

	fmt.Printf("Booking %s confirmed, %d seats, total %s\n", booking.ID, len(booking.SeatIDs), booking.Total)
}
