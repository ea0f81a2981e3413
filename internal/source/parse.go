package source

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/buildtall-systems/kitchen/internal/order"
)

// Parse reads an order such as "pizza=5 hamburguesa=2". Items may be split
// by whitespace or commas and use "=" or ":" between name and quantity.
// Names are lowercased.
func Parse(id int64, line string) (order.Order, error) {
	fields := strings.FieldsFunc(line, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n'
	})
	if len(fields) == 0 {
		return order.Order{}, fmt.Errorf("%w: order %d is empty", order.ErrInvalidOrder, id)
	}

	items := make(order.Items, 0, len(fields))
	for _, f := range fields {
		name, qty, ok := strings.Cut(f, "=")
		if !ok {
			name, qty, ok = strings.Cut(f, ":")
		}
		if !ok {
			return order.Order{}, fmt.Errorf("%w: %q is not item=quantity", order.ErrInvalidOrder, f)
		}
		n, err := strconv.Atoi(strings.TrimSpace(qty))
		if err != nil {
			return order.Order{}, fmt.Errorf("%w: quantity of %q: %v", order.ErrInvalidOrder, name, err)
		}
		items = append(items, order.Line{Item: strings.ToLower(strings.TrimSpace(name)), Quantity: n})
	}

	o := order.New(id, items)
	if err := o.Validate(); err != nil {
		return order.Order{}, err
	}
	return o, nil
}

// ParseAll parses one order per line, numbering them from 1.
func ParseAll(lines []string) ([]order.Order, error) {
	orders := make([]order.Order, 0, len(lines))
	for i, line := range lines {
		o, err := Parse(int64(i+1), line)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, nil
}
