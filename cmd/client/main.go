package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/saiputravu/marketsim/internal/bookmodel"
	"github.com/saiputravu/marketsim/internal/transport"
)

func main() {
	addr := flag.String("server", "ws://127.0.0.1:8080/subscribe", "websocket address of the market data server")
	instrument := flag.String("instrument", "BTC_USD", "instrument to subscribe to")
	depth := flag.Int("depth", 5, "number of price levels to display per side")
	flag.Parse()

	client, err := transport.Dial(*addr, bookmodel.InstrumentID(*instrument))
	if err != nil {
		log.Fatalf("failed to connect to %s: %v", *addr, err)
	}
	defer client.Close()

	fmt.Printf("Subscribed to %s at %s\n", *instrument, *addr)
	for {
		_, err := client.Next()
		if err != nil {
			fmt.Fprintf(os.Stderr, "stream ended: %v\n", err)
			return
		}
		displayBook(client.Book(), *depth)
	}
}

// displayBook renders the top N levels of both sides as plain text.
func displayBook(book interface {
	Instrument() bookmodel.InstrumentID
	SequenceNumber() uint64
	TopN(int) ([]bookmodel.PriceLevelView, []bookmodel.PriceLevelView)
}, depth int) {
	bids, asks := book.TopN(depth)

	fmt.Printf("\n=== %s (seq %d) ===\n", book.Instrument(), book.SequenceNumber())
	fmt.Println("  BIDS                 ASKS")
	for i := 0; i < depth; i++ {
		var bidCol, askCol string
		if i < len(bids) {
			bidCol = fmt.Sprintf("%8s @ %-6d", bids[i].Price, bids[i].Quantity)
		} else {
			bidCol = "                    "
		}
		if i < len(asks) {
			askCol = fmt.Sprintf("%8s @ %-6d", asks[i].Price, asks[i].Quantity)
		}
		fmt.Printf("  %s  %s\n", bidCol, askCol)
	}
}
