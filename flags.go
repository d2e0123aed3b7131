package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/coreman2200/moodlights/model"
)

// lampCommand is one "-set index=COLOR" argument. COLOR may also be
// "off" or "random".
type lampCommand struct {
	index uint
	cmd   string
	color model.Color
}

type lampFlags []lampCommand

func (l *lampFlags) String() string {
	parts := make([]string, 0, len(*l))
	for _, c := range *l {
		parts = append(parts, fmt.Sprintf("%d=%s", c.index, c.cmd))
	}
	return strings.Join(parts, ",")
}

func (l *lampFlags) Set(v string) error {
	kv := strings.SplitN(v, "=", 2)
	if len(kv) != 2 {
		return fmt.Errorf("want index=COLOR, got %q", v)
	}
	i, err := strconv.ParseUint(kv[0], 10, 32)
	if err != nil {
		return fmt.Errorf("lamp index %q: %w", kv[0], err)
	}

	c := lampCommand{index: uint(i), cmd: kv[1]}
	switch kv[1] {
	case "off", "random":
	default:
		col, ok := model.ParseColor(kv[1])
		if !ok {
			return fmt.Errorf("%q: %w", kv[1], model.ErrMalformedColor)
		}
		c.color = col
	}

	*l = append(*l, c)
	return nil
}

func (c lampCommand) apply(b *model.LampBank) error {
	switch c.cmd {
	case "off":
		return b.Blank(c.index)
	case "random":
		return b.Rand(c.index)
	default:
		return b.Set(c.index, c.color)
	}
}

// colorFlag is an optional color; unset until Set succeeds.
type colorFlag struct {
	color model.Color
	set   bool
}

func (f *colorFlag) String() string {
	if !f.set {
		return ""
	}
	return f.color.String()
}

func (f *colorFlag) Set(v string) error {
	col, ok := model.ParseColor(v)
	if !ok {
		return fmt.Errorf("%q: %w", v, model.ErrMalformedColor)
	}
	f.color, f.set = col, true
	return nil
}

// applyState sets up the bank from the config colors and then the command
// line, in this order: config colors, blank, all, set, rand.
func applyState(b *model.LampBank, initial []model.Color, blank bool, all colorFlag, set lampFlags, random bool) error {
	for i, c := range initial {
		if err := b.Set(uint(i), c); err != nil {
			return fmt.Errorf("config lamps: %w", err)
		}
	}
	if blank {
		b.BlankAll()
	}
	if all.set {
		b.SetAll(all.color)
	}
	for _, c := range set {
		if err := c.apply(b); err != nil {
			return err
		}
	}
	if random {
		b.RandAll()
	}
	return nil
}
