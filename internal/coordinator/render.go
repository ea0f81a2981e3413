package coordinator

import (
	"fmt"
	"io"
	"strings"

	"github.com/buildtall-systems/kitchen/internal/inventory"
	"github.com/buildtall-systems/kitchen/internal/protocol"
)

// RenderEvents writes one line per event, in order.
func RenderEvents(w io.Writer, events []protocol.Event) {
	for _, e := range events {
		switch e.Kind {
		case protocol.EventStatus:
			fmt.Fprintf(w, "order %d: %s -> %s\n", e.OrderID, e.From, e.To)
		case protocol.EventInventory:
			fmt.Fprintf(w, "inventory after order %d: %s\n", e.OrderID, formatStock(e.Inventory))
		}
	}
}

// RenderInventory writes stock one item per line, sorted by name.
func RenderInventory(w io.Writer, title string, stock map[string]int) {
	fmt.Fprintf(w, "%s:\n", title)
	for _, name := range inventory.Names(stock) {
		fmt.Fprintf(w, "  %s: %d\n", name, stock[name])
	}
}

func formatStock(stock map[string]int) string {
	names := inventory.Names(stock)
	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = fmt.Sprintf("%s=%d", name, stock[name])
	}
	return strings.Join(parts, " ")
}
