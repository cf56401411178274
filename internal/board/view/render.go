package view

import (
	"fmt"
	"io"
	"strings"
	"time"

	"order-board/internal/ordersync/conn"
	"order-board/internal/ordersync/domain/models"
)

// Renderer prints snapshots as a plain text board. One renderer per view;
// it holds the last known pieces so any update redraws a full board.
type Renderer struct {
	out       io.Writer
	title     string
	state     conn.State
	active    []models.Order
	history   []models.Order
	showItems bool
}

func NewRenderer(out io.Writer, title string, showItems bool) *Renderer {
	return &Renderer{
		out:       out,
		title:     title,
		state:     conn.StateConnecting,
		showItems: showItems,
	}
}

func (r *Renderer) SetState(s conn.State) {
	r.state = s
	if s == conn.StateLost {
		fmt.Fprintln(r.out, "connection lost, please restart the board")
		return
	}
	r.draw()
}

func (r *Renderer) SetActive(orders []models.Order) {
	r.active = orders
	r.draw()
}

func (r *Renderer) SetHistory(orders []models.Order) {
	r.history = orders
	r.draw()
}

// Notice prints a one-off toast line without redrawing the board.
func (r *Renderer) Notice(message string) {
	if message == "" {
		return
	}
	fmt.Fprintf(r.out, "*** %s\n", message)
}

func (r *Renderer) draw() {
	var b strings.Builder
	fmt.Fprintf(&b, "\n=== %s [%s] %s ===\n", r.title, r.state, time.Now().Format("15:04:05"))

	if len(r.active) == 0 {
		b.WriteString("no active orders\n")
	}
	for _, o := range r.active {
		r.writeOrder(&b, o)
	}

	if len(r.history) > 0 {
		b.WriteString("--- history ---\n")
		for _, o := range r.history {
			fmt.Fprintf(&b, "  %s  %s  %s\n", o.OrderNumber, o.Status, o.CustomerName)
		}
	}

	fmt.Fprint(r.out, b.String())
}

func (r *Renderer) writeOrder(b *strings.Builder, o models.Order) {
	marker := " "
	if o.Origin == models.OriginOptimistic {
		// Not yet confirmed by the server.
		marker = "~"
	}
	fmt.Fprintf(b, "%s %s  #%d  %-9s  %-7s  %s  %s\n",
		marker, o.OrderNumber, o.ID, o.Status, o.PaymentStatus,
		o.TotalAmount.StringFixed(2), o.CustomerName)

	if !r.showItems {
		return
	}
	for _, item := range o.Items {
		fmt.Fprintf(b, "      %dx %s", item.Quantity, item.Name)
		if item.SpecialInstructions != "" {
			fmt.Fprintf(b, " (%s)", item.SpecialInstructions)
		}
		b.WriteByte('\n')
	}
}
