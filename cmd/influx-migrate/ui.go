/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/carverauto/homeradar/pkg/migrate"
)

// Dracula theme colors.
const (
	draculaForeground = "#F8F8F2"
	draculaCyan       = "#8BE9FD"
	draculaGreen      = "#50FA7B"
	draculaPurple     = "#BD93F9"
	draculaRed        = "#FF5555"
	draculaComment    = "#6272A4"

	barWidth   = 40
	appPadding = 2
)

type styles struct {
	title, job, done, stats, help, error, app lipgloss.Style
}

func newStyles() styles {
	return styles{
		title: lipgloss.NewStyle().
			Foreground(lipgloss.Color(draculaPurple)).
			Bold(true),
		job: lipgloss.NewStyle().
			Foreground(lipgloss.Color(draculaCyan)),
		done: lipgloss.NewStyle().
			Foreground(lipgloss.Color(draculaGreen)),
		stats: lipgloss.NewStyle().
			Foreground(lipgloss.Color(draculaForeground)),
		help: lipgloss.NewStyle().
			Foreground(lipgloss.Color(draculaComment)),
		error: lipgloss.NewStyle().
			Foreground(lipgloss.Color(draculaRed)).
			Bold(true),
		app: lipgloss.NewStyle().
			Padding(1, appPadding).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(draculaCyan)),
	}
}

// progressMsg carries a migrator observation into the program.
type progressMsg migrate.Progress

// doneMsg ends the program with the migrator's result.
type doneMsg struct {
	err error
}

type jobView struct {
	progress migrate.Progress
	started  time.Time
	// resumed is the offset of the first observation.
	resumed int64
}

type model struct {
	order  []string
	jobs   map[string]*jobView
	bar    progress.Model
	styles styles
	now    func() time.Time
	// cancel stops the migration when the user quits.
	cancel      func()
	interrupted bool
	finished    bool
	err         error
}

func newModel(jobs []migrate.Job, cancel func()) *model {
	m := &model{
		jobs:   make(map[string]*jobView, len(jobs)),
		bar:    progress.New(progress.WithDefaultGradient(), progress.WithWidth(barWidth)),
		styles: newStyles(),
		now:    time.Now,
		cancel: cancel,
	}

	for i := range jobs {
		key := jobs[i].Key()
		m.order = append(m.order, key)
		m.jobs[key] = &jobView{}
	}

	return m
}

func (*model) Init() tea.Cmd {
	return nil
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyEsc || msg.String() == "q" {
			m.interrupted = true
			m.cancel()
		}

		return m, nil
	case progressMsg:
		m.observe(migrate.Progress(msg))

		return m, nil
	case doneMsg:
		m.finished = true
		m.err = msg.err

		return m, tea.Quit
	}

	return m, nil
}

func (m *model) observe(p migrate.Progress) {
	jv, ok := m.jobs[p.Job]
	if !ok {
		jv = &jobView{}
		m.jobs[p.Job] = jv
		m.order = append(m.order, p.Job)
	}

	if jv.started.IsZero() {
		jv.started = m.now()
		jv.resumed = p.Offset
	}

	jv.progress = p
}

func (m *model) View() string {
	var b strings.Builder

	b.WriteString(m.styles.title.Render("InfluxDB 1.x -> 2.x migration"))
	b.WriteString("\n\n")

	for _, key := range m.order {
		b.WriteString(m.renderJob(key, m.jobs[key]))
		b.WriteString("\n")
	}

	switch {
	case m.err != nil && !m.interrupted:
		b.WriteString(m.styles.error.Render("Error: " + m.err.Error()))
	case m.interrupted:
		b.WriteString(m.styles.help.Render("Interrupted, progress is checkpointed. Rerun to resume."))
	case m.finished:
		b.WriteString(m.styles.done.Render("All jobs complete."))
	default:
		b.WriteString(m.styles.help.Render("ctrl+c / q to stop"))
	}

	return m.styles.app.Render(b.String()) + "\n"
}

func (m *model) renderJob(key string, jv *jobView) string {
	p := jv.progress

	title := m.styles.job.Render(key)
	if p.Done {
		title = m.styles.done.Render(key + " done")
	}

	stats := fmt.Sprintf("%11d/%d", p.Offset, p.Total)
	if p.QueryTime > 0 || p.WriteTime > 0 {
		stats += fmt.Sprintf("  times %.2f/%.2f/%.2f",
			p.QueryTime.Seconds(), p.PrepareTime.Seconds(), p.WriteTime.Seconds())
	}

	if rate := m.rate(jv); rate > 0 && !p.Done {
		stats += fmt.Sprintf("  %.0f pts/s", rate)
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		title,
		m.bar.ViewAs(fraction(p)),
		m.styles.stats.Render(stats),
	)
}

func (m *model) rate(jv *jobView) float64 {
	if jv.started.IsZero() {
		return 0
	}

	elapsed := m.now().Sub(jv.started).Seconds()
	if elapsed <= 0 {
		return 0
	}

	return float64(jv.progress.Offset-jv.resumed) / elapsed
}

func fraction(p migrate.Progress) float64 {
	if p.Done {
		return 1
	}

	if p.Total <= 0 {
		return 0
	}

	return min(float64(p.Offset)/float64(p.Total), 1)
}
