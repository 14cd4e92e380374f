package main

import (
	"fmt"
	"strings"

	"vmstore/pkg/coordinator"
	"vmstore/pkg/types"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

var (
	primaryColor   = lipgloss.Color("#FF79C6") // Pink
	secondaryColor = lipgloss.Color("#8BE9FD") // Cyan
	accentColor    = lipgloss.Color("#50FA7B") // Green
	warningColor   = lipgloss.Color("#FFB86C") // Orange
	dangerColor    = lipgloss.Color("#FF5555") // Red
	mutedColor     = lipgloss.Color("#6272A4")
	bgLightColor   = lipgloss.Color("#44475A")
	fgColor        = lipgloss.Color("#F8F8F2")

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor).
			MarginBottom(1)

	mutedStyle = lipgloss.NewStyle().
			Foreground(mutedColor)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(secondaryColor).
			Background(bgLightColor).
			Padding(0, 1)

	rowStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Foreground(fgColor)

	onlineStyle  = lipgloss.NewStyle().Foreground(accentColor).Bold(true)
	offlineStyle = lipgloss.NewStyle().Foreground(dangerColor).Bold(true)
	warnStyle    = lipgloss.NewStyle().Foreground(warningColor)
	promptStyle  = lipgloss.NewStyle().Foreground(secondaryColor)
	ghostStyle   = lipgloss.NewStyle().Foreground(primaryColor)
)

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(bgLightColor)).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == 0 {
				return headerStyle
			}
			return rowStyle
		}).
		Headers(headers...)
}

// fileRow is one file with the owners the controller reports online.
type fileRow struct {
	Name   string           `json:"filename"`
	Owners []types.Location `json:"owners"`
}

func renderFilesTable(rows []fileRow) string {
	if len(rows) == 0 {
		return mutedStyle.Render("No files on cloud")
	}

	t := newTable("FILE", "OWNERS", "ADDRESSES")
	for _, r := range rows {
		ids := make([]string, 0, len(r.Owners))
		addrs := make([]string, 0, len(r.Owners))
		for _, o := range r.Owners {
			ids = append(ids, string(o.NodeID))
			addrs = append(addrs, o.Endpoint())
		}
		t.Row(r.Name, strings.Join(ids, ", "), strings.Join(addrs, ", "))
	}
	return t.Render()
}

func renderNodesTable(nodes []types.NodeRecord) string {
	t := newTable("NODE ID", "ADDRESS", "STATUS", "LAST SEEN")
	for _, n := range nodes {
		state := offlineStyle.Render("OFFLINE")
		if n.Online {
			state = onlineStyle.Render("ONLINE")
		}
		t.Row(string(n.ID), n.Endpoint(), state, n.LastSeen.Format(types.TimeFormat))
	}
	return t.Render()
}

func renderSnapshot(s coordinator.Snapshot) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("Nodes (%d)", len(s.Nodes))))
	b.WriteString("\n")
	b.WriteString(renderNodesTable(s.Nodes))
	b.WriteString("\n\n")

	b.WriteString(titleStyle.Render(fmt.Sprintf("Directory entries (%d)", len(s.Files))))
	b.WriteString("\n")
	t := newTable("FILE", "OWNERS", "UPLOADED")
	for _, f := range s.Files {
		ids := make([]string, 0, len(f.Owners))
		for _, o := range f.Owners {
			ids = append(ids, string(o.NodeID))
		}
		t.Row(f.Name, strings.Join(ids, ", "), f.UploadTime.Format(types.TimeFormat))
	}
	b.WriteString(t.Render())
	return b.String()
}
