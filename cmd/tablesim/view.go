package main

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"cardtable/internal/client"
	"cardtable/internal/domain"

	"github.com/pterm/pterm"
)

// render shows each participant's mirror side by side.
func render(clients ...*client.Client) {
	row := make([]pterm.Panel, 0, len(clients))
	for _, c := range clients {
		row = append(row, pterm.Panel{Data: view(c)})
	}
	if err := pterm.DefaultPanel.WithPanels(pterm.Panels{row}).WithPadding(4).Render(); err != nil {
		pterm.Error.Println(err)
	}
}

func view(c *client.Client) string {
	store := c.Store()
	table := store.Table()

	var b strings.Builder
	fmt.Fprintf(&b, "host %s, life %d/%d, dice %v\n", table.Host, table.Life[domain.SeatPlayer1], table.Life[domain.SeatPlayer2], table.Dice)

	hand := make([]string, 0, len(c.Hand()))
	for _, h := range c.Hand() {
		hand = append(hand, h.Name)
	}
	fmt.Fprintf(&b, "hand %s\n", strings.Join(hand, ", "))
	for _, user := range table.Seats {
		if user != "" && user != c.Self() {
			fmt.Fprintf(&b, "%s holds %d\n", user, table.HandCounts[user])
		}
	}

	decks := pterm.TableData{{"Deck", "Owner", "Cards", "Top"}}
	for _, d := range store.Decks() {
		top := d.TopFace
		if top == "" {
			top = "-"
		}
		decks = append(decks, []string{strconv.FormatUint(uint64(d.ID), 10), d.Owner, strconv.Itoa(d.Count), top})
	}
	tbl, err := pterm.DefaultTable.WithHasHeader().WithData(decks).Srender()
	if err == nil {
		b.WriteString(tbl)
		b.WriteString("\n")
	}

	cards := store.Cards()
	if len(cards) == 0 {
		return b.String()
	}
	sort.Slice(cards, func(i, j int) bool { return cards[i].Transform.StackIndex < cards[j].Transform.StackIndex })
	board := pterm.TableData{{"Card", "Owner", "Stack", "Pile"}}
	for _, card := range cards {
		board = append(board, []string{card.Name, card.Owner, strconv.Itoa(card.Transform.StackIndex), strconv.Itoa(len(c.Pile(card.ID)))})
	}
	if tbl, err := pterm.DefaultTable.WithHasHeader().WithData(board).Srender(); err == nil {
		b.WriteString(tbl)
	}
	return b.String()
}
