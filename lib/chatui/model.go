// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package chatui

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/bureau-foundation/chatsync/lib/chatsync"
	"github.com/bureau-foundation/chatsync/lib/clock"
	"github.com/bureau-foundation/chatsync/lib/conversation"
	"github.com/bureau-foundation/chatsync/lib/datebucket"
	"github.com/bureau-foundation/chatsync/lib/ref"
	"github.com/bureau-foundation/chatsync/lib/roster"
	"github.com/bureau-foundation/chatsync/lib/schema/chat"
	"github.com/bureau-foundation/chatsync/lib/typing"
)

// Tab identifies which roster list is shown.
type Tab int

const (
	// TabGroups lists group conversations.
	TabGroups Tab = iota
	// TabPrivate lists private chats.
	TabPrivate
)

// FocusRegion identifies which region receives keys.
type FocusRegion int

const (
	// FocusRoster means navigation keys move the roster selection.
	FocusRoster FocusRegion = iota
	// FocusMessages means navigation keys move the selected message.
	FocusMessages
	// FocusComposer means keystrokes edit the message draft.
	FocusComposer
	// FocusFilter means keystrokes edit the roster filter.
	FocusFilter
)

// Layout constants.
const (
	rosterWidthMin = 24
	rosterWidthMax = 40
	composerHeight = 3

	// clockTickInterval is how often relative times are refreshed and
	// the calendar day is checked for date header relabeling.
	clockTickInterval = 30 * time.Second
)

// clockTickMsg drives relative time refresh and midnight relabeling.
type clockTickMsg struct{}

func scheduleClockTick() tea.Cmd {
	return tea.Tick(clockTickInterval, func(time.Time) tea.Msg { return clockTickMsg{} })
}

// inbox collects controller notices and asynchronous action results.
// Callbacks fill it while the scheduler drains; the model empties it
// right after.
type inbox struct {
	notices []conversation.Notice
	errors  []error
}

// Options configures a Model.
type Options struct {
	// Clock provides "now" for relative times and relabeling.
	// Default: clock.Real().
	Clock clock.Clock

	// Location is used for message timestamps. Default: time.Local.
	Location *time.Location

	// Theme overrides DefaultTheme.
	Theme *Theme

	// Open is a conversation to open as soon as the roster lists it.
	Open ref.ConversationID
}

// Model is the bubbletea model for the chat UI. It drives a mounted
// engine; every engine call happens inside Update.
type Model struct {
	engine    *chatsync.Engine
	scheduler *Scheduler
	clock     clock.Clock
	location  *time.Location
	theme     Theme
	keys      KeyMap
	inbox     *inbox

	// Terminal dimensions (set by WindowSizeMsg).
	width  int
	height int
	ready  bool

	focusRegion FocusRegion
	priorFocus  FocusRegion // Restored when the filter closes.

	// Roster pane. entries is what the pane shows: the active tab's
	// list, or fuzzy matches across both tabs while filtering.
	activeTab    Tab
	filter       textinput.Model
	entries      []roster.Match
	cursor       int
	scrollOffset int
	selectedID   ref.ConversationID // Stable selection across reorders.

	// seen records the last activity the user has seen per
	// conversation, for unread marking.
	seen map[ref.ConversationID]time.Time

	// pendingOpen is opened once the roster lists it.
	pendingOpen ref.ConversationID

	pane            *messagePane
	selectedMessage ref.MessageID
	composer        textarea.Model
	spinner         spinner.Model

	// Transient status line (notices, errors, log records). Cleared
	// after statusFadeDelay; statusGeneration matches fades to lines.
	status           string
	statusLevel      slog.Level
	statusGeneration uint64

	day datebucket.Day
}

// NewModel creates a model for engine, which must already be mounted.
// scheduler must be the engine's scheduler.
func NewModel(engine *chatsync.Engine, scheduler *Scheduler, options Options) Model {
	if options.Clock == nil {
		options.Clock = clock.Real()
	}
	if options.Location == nil {
		options.Location = time.Local
	}
	theme := DefaultTheme
	if options.Theme != nil {
		theme = *options.Theme
	}

	filter := textinput.New()
	filter.Prompt = "/ "
	filter.Placeholder = "filter conversations"

	composer := textarea.New()
	composer.ShowLineNumbers = false
	composer.Prompt = "┃ "
	composer.Placeholder = "Write a message…"
	composer.CharLimit = 4000
	composer.SetHeight(composerHeight)
	// Enter submits; the model inserts newlines for the Newline
	// binding.
	composer.KeyMap.InsertNewline.SetEnabled(false)

	model := Model{
		engine:      engine,
		scheduler:   scheduler,
		clock:       options.Clock,
		location:    options.Location,
		theme:       theme,
		keys:        DefaultKeyMap,
		inbox:       &inbox{},
		filter:      filter,
		seen:        make(map[ref.ConversationID]time.Time),
		pendingOpen: options.Open,
		pane:        newMessagePane(),
		composer:    composer,
		spinner:     spinner.New(spinner.WithSpinner(spinner.MiniDot)),
		day:         datebucket.DayOf(options.Clock.Now(), options.Location),
	}

	controller := engine.Controller()
	controller.SetContainer(model.pane)
	received := model.inbox
	controller.OnNotice(func(notice conversation.Notice) {
		received.notices = append(received.notices, notice)
	})

	model.refresh()
	return model
}

// Init implements tea.Model.
func (model Model) Init() tea.Cmd {
	return tea.Batch(model.scheduler.Wait(), model.spinner.Tick, scheduleClockTick())
}

// Update implements tea.Model.
func (model Model) Update(message tea.Msg) (tea.Model, tea.Cmd) {
	var commands []tea.Cmd

	switch message := message.(type) {
	case wakeMsg:
		model.scheduler.Drain()
		commands = append(commands, model.afterEngineChange(), model.scheduler.Wait())

	case tea.WindowSizeMsg:
		model.width = message.Width
		model.height = message.Height
		model.ready = true
		model.updatePaneSizes()
		model.refresh()

	case tea.KeyMsg:
		if key.Matches(message, model.keys.Quit) && (message.Type == tea.KeyCtrlC ||
			(model.focusRegion != FocusComposer && model.focusRegion != FocusFilter)) {
			return model, tea.Quit
		}
		var command tea.Cmd
		switch model.focusRegion {
		case FocusFilter:
			command = model.handleFilterKeys(message)
		case FocusComposer:
			command = model.handleComposerKeys(message)
		case FocusMessages:
			command = model.handleMessageKeys(message)
		default:
			command = model.handleRosterKeys(message)
		}
		commands = append(commands, command, model.afterEngineChange())

	case tea.MouseMsg:
		if message.Action == tea.MouseActionPress && model.inMessagePane(message.X) {
			switch message.Button {
			case tea.MouseButtonWheelUp:
				model.pane.viewport.ScrollUp(3)
				model.scrolled()
			case tea.MouseButtonWheelDown:
				model.pane.viewport.ScrollDown(3)
				model.scrolled()
			}
		}

	case spinner.TickMsg:
		var command tea.Cmd
		model.spinner, command = model.spinner.Update(message)
		commands = append(commands, command)

	case clockTickMsg:
		today := datebucket.DayOf(model.clock.Now(), model.location)
		if today.Compare(model.day) != 0 {
			model.day = today
			model.engine.Controller().Relabel()
		}
		model.refresh()
		commands = append(commands, scheduleClockTick())

	case logRecordMsg:
		commands = append(commands, model.setStatus(message.Summary, message.Level))

	case statusFadeMsg:
		if message.generation == model.statusGeneration {
			model.status = ""
		}
	}

	return model, tea.Batch(commands...)
}

// afterEngineChange applies everything the engine may have changed:
// pending notices, the deferred initial open, and the rendered views.
func (model *Model) afterEngineChange() tea.Cmd {
	var command tea.Cmd
	for _, notice := range model.inbox.notices {
		level := slog.LevelInfo
		if notice.Kind == conversation.NoticeError {
			level = slog.LevelWarn
		}
		command = model.setStatus(notice.Text, level)
		if notice.Kind != conversation.NoticeError && model.focusRegion != FocusFilter {
			model.focusRegion = FocusRoster
			model.composer.Blur()
		}
	}
	for _, err := range model.inbox.errors {
		command = model.setStatus(err.Error(), slog.LevelWarn)
	}
	model.inbox.notices = nil
	model.inbox.errors = nil

	if !model.pendingOpen.IsZero() {
		if openCommand := model.tryPendingOpen(); openCommand != nil {
			command = openCommand
		}
	}
	model.refresh()
	return command
}

// tryPendingOpen opens the conversation requested at startup once the
// roster has it, or gives up once both lists have loaded without it.
func (model *Model) tryPendingOpen() tea.Cmd {
	id := model.pendingOpen
	engineRoster := model.engine.Roster()
	if _, ok := engineRoster.Conversation(id); ok {
		model.pendingOpen = ref.ConversationID{}
		model.selectedID = id
		return model.open(id)
	}
	if !engineRoster.Loading(chat.KindGroup) && !engineRoster.Loading(chat.KindPrivate) {
		model.pendingOpen = ref.ConversationID{}
		return model.setStatus(fmt.Sprintf("Conversation %s is not in your roster", id), slog.LevelWarn)
	}
	return nil
}

// open opens id and moves focus to the composer.
func (model *Model) open(id ref.ConversationID) tea.Cmd {
	if err := model.engine.Open(id); err != nil {
		return model.setStatus(err.Error(), slog.LevelWarn)
	}
	model.selectedMessage = ref.MessageID{}
	model.focusRegion = FocusComposer
	return model.composer.Focus()
}

// setStatus shows text in the status bar and schedules its fade.
func (model *Model) setStatus(text string, level slog.Level) tea.Cmd {
	model.statusGeneration++
	model.status = text
	model.statusLevel = level
	generation := model.statusGeneration
	return tea.Tick(statusFadeDelay, func(time.Time) tea.Msg {
		return statusFadeMsg{generation: generation}
	})
}

func (model *Model) handleRosterKeys(message tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(message, model.keys.Up):
		model.moveCursor(-1)
	case key.Matches(message, model.keys.Down):
		model.moveCursor(1)
	case key.Matches(message, model.keys.PageUp):
		model.moveCursor(-model.rosterRows())
	case key.Matches(message, model.keys.PageDown):
		model.moveCursor(model.rosterRows())
	case key.Matches(message, model.keys.Home):
		model.moveCursor(-len(model.entries))
	case key.Matches(message, model.keys.End):
		model.moveCursor(len(model.entries))
	case key.Matches(message, model.keys.TabGroups):
		model.switchTab(TabGroups)
	case key.Matches(message, model.keys.TabPrivate):
		model.switchTab(TabPrivate)
	case key.Matches(message, model.keys.FilterActivate):
		model.priorFocus = model.focusRegion
		model.focusRegion = FocusFilter
		model.cursor, model.scrollOffset = 0, 0
		return model.filter.Focus()
	case key.Matches(message, model.keys.FilterClear):
		if model.filter.Value() != "" {
			model.filter.SetValue("")
		}
	case key.Matches(message, model.keys.Open):
		if model.cursor < len(model.entries) {
			return model.open(model.entries[model.cursor].Conversation.ID)
		}
	case key.Matches(message, model.keys.FocusNext):
		model.focusRegion = FocusMessages
	case key.Matches(message, model.keys.Compose):
		return model.focusComposer()
	}
	return nil
}

func (model *Model) handleFilterKeys(message tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(message, model.keys.FilterClear):
		model.filter.SetValue("")
		model.filter.Blur()
		model.focusRegion = model.priorFocus
		return nil
	case message.Type == tea.KeyEnter:
		model.filter.Blur()
		if model.cursor < len(model.entries) {
			return model.open(model.entries[model.cursor].Conversation.ID)
		}
		model.focusRegion = FocusRoster
		return nil
	case message.Type == tea.KeyUp || message.Type == tea.KeyCtrlP:
		model.moveCursor(-1)
		return nil
	case message.Type == tea.KeyDown || message.Type == tea.KeyCtrlN:
		model.moveCursor(1)
		return nil
	}
	before := model.filter.Value()
	var command tea.Cmd
	model.filter, command = model.filter.Update(message)
	if model.filter.Value() != before {
		model.cursor, model.scrollOffset = 0, 0
		model.selectedID = ref.ConversationID{}
	}
	return command
}

func (model *Model) handleComposerKeys(message tea.KeyMsg) tea.Cmd {
	controller := model.engine.Controller()
	switch {
	case key.Matches(message, model.keys.Cancel):
		if _, editing := controller.Composer().Editing(); editing {
			controller.CancelEdit()
			return nil
		}
		model.composer.Blur()
		model.focusRegion = FocusMessages
		return nil
	case key.Matches(message, model.keys.FocusNext):
		model.composer.Blur()
		model.focusRegion = FocusRoster
		return nil
	case key.Matches(message, model.keys.Newline):
		model.composer.InsertString("\n")
		controller.Input(model.composer.Value())
		return nil
	case key.Matches(message, model.keys.Submit):
		if err := controller.Submit(); err != nil {
			return model.setStatus(describeError(err), slog.LevelWarn)
		}
		model.pane.viewport.GotoBottom()
		return nil
	}

	var command tea.Cmd
	model.composer, command = model.composer.Update(message)
	if model.composer.Value() != controller.Composer().Text() {
		controller.Input(model.composer.Value())
	}
	return command
}

func (model *Model) handleMessageKeys(message tea.KeyMsg) tea.Cmd {
	controller := model.engine.Controller()
	switch {
	case key.Matches(message, model.keys.Up):
		model.moveSelection(-1)
	case key.Matches(message, model.keys.Down):
		model.moveSelection(1)
	case key.Matches(message, model.keys.PageUp):
		model.pane.viewport.HalfPageUp()
		model.scrolled()
	case key.Matches(message, model.keys.PageDown):
		model.pane.viewport.HalfPageDown()
		model.scrolled()
	case key.Matches(message, model.keys.Home):
		model.pane.viewport.GotoTop()
		model.scrolled()
	case key.Matches(message, model.keys.End):
		model.selectedMessage = ref.MessageID{}
		model.pane.viewport.GotoBottom()
		model.scrolled()
	case key.Matches(message, model.keys.Edit):
		if model.selectedMessage.IsZero() {
			return nil
		}
		if err := controller.BeginEdit(model.selectedMessage); err != nil {
			return model.setStatus(describeError(err), slog.LevelWarn)
		}
		return model.focusComposer()
	case key.Matches(message, model.keys.Delete):
		if model.selectedMessage.IsZero() {
			return nil
		}
		if err := controller.Delete(model.selectedMessage); err != nil {
			return model.setStatus(describeError(err), slog.LevelWarn)
		}
	case key.Matches(message, model.keys.PrivateChat):
		return model.startPrivateChat()
	case key.Matches(message, model.keys.LeaveGroup):
		if err := controller.Leave(); err != nil {
			return model.setStatus(describeError(err), slog.LevelWarn)
		}
	case key.Matches(message, model.keys.FocusNext):
		return model.focusComposer()
	case key.Matches(message, model.keys.Compose):
		return model.focusComposer()
	}
	return nil
}

// startPrivateChat opens a private chat with the sender of the
// selected message.
func (model *Model) startPrivateChat() tea.Cmd {
	selected, ok := model.engine.Controller().Store().Find(model.selectedMessage)
	if !ok || selected.Sender == nil {
		return nil
	}
	if selected.IsFrom(model.engine.Self().ID) {
		return model.setStatus("That is your own message", slog.LevelInfo)
	}
	received := model.inbox
	model.engine.OpenPrivateWith(selected.Sender.ID, func(err error) {
		if err != nil {
			received.errors = append(received.errors, err)
		}
	})
	model.selectedMessage = ref.MessageID{}
	return model.focusComposer()
}

func (model *Model) focusComposer() tea.Cmd {
	if model.engine.Controller().State() != conversation.StateActive {
		return nil
	}
	model.focusRegion = FocusComposer
	return model.composer.Focus()
}

// describeError turns controller errors into status bar text.
func describeError(err error) string {
	switch {
	case errors.Is(err, conversation.ErrEmptyMessage):
		return "Message is empty"
	case errors.Is(err, conversation.ErrNotActive):
		return "Open a conversation first"
	case errors.Is(err, conversation.ErrNotGroup):
		return "Only groups have members to manage"
	}
	return err.Error()
}

// moveSelection moves the message selection by delta, scrolling to
// keep it visible. Moving up from the first loaded message asks for
// the previous page.
func (model *Model) moveSelection(delta int) {
	order := model.pane.rendered.order
	if len(order) == 0 {
		return
	}
	index := len(order)
	if !model.selectedMessage.IsZero() {
		if found := slices.Index(order, model.selectedMessage); found >= 0 {
			index = found
		}
	}
	index += delta
	if index < 0 {
		index = 0
		model.engine.Controller().LoadOlder()
	}
	if index >= len(order) {
		model.selectedMessage = ref.MessageID{}
		model.pane.viewport.GotoBottom()
		model.scrolled()
		return
	}
	model.selectedMessage = order[index]
	model.refresh()
	model.pane.reveal(model.selectedMessage)
	model.scrolled()
}

// scrolled reports a scroll position change to the controller:
// reaching the top loads older messages, and leaving the bottom stops
// live messages from pulling the view down.
func (model *Model) scrolled() {
	controller := model.engine.Controller()
	controller.Store().SetUserScrolledUp(!model.pane.viewport.AtBottom())
	controller.OnScroll(model.pane.ScrollTop())
}

func (model *Model) moveCursor(delta int) {
	if len(model.entries) == 0 {
		return
	}
	model.cursor = max(0, min(len(model.entries)-1, model.cursor+delta))
	model.selectedID = model.entries[model.cursor].Conversation.ID
	model.ensureCursorVisible()
}

func (model *Model) switchTab(tab Tab) {
	if model.activeTab == tab {
		return
	}
	model.activeTab = tab
	model.cursor, model.scrollOffset = 0, 0
	model.selectedID = ref.ConversationID{}
	model.rebuildEntries()
}

// rosterRows is how many two-line entries fit in the roster pane.
func (model Model) rosterRows() int {
	return max(1, (model.contentHeight()-1)/2)
}

func (model *Model) ensureCursorVisible() {
	rows := model.rosterRows()
	if model.cursor < model.scrollOffset {
		model.scrollOffset = model.cursor
	}
	if model.cursor >= model.scrollOffset+rows {
		model.scrollOffset = model.cursor - rows + 1
	}
}

// rebuildEntries refreshes the roster pane from the roster, keeping
// the selection on the same conversation when it moves.
func (model *Model) rebuildEntries() {
	engineRoster := model.engine.Roster()
	self := model.engine.Self().ID

	if query := model.filter.Value(); query != "" {
		model.entries = engineRoster.Filter(query)
	} else {
		list := engineRoster.Groups()
		if model.activeTab == TabPrivate {
			list = engineRoster.Private()
		}
		model.entries = make([]roster.Match, len(list))
		for index := range list {
			model.entries[index] = roster.Match{Conversation: list[index], Title: list[index].Title(self)}
		}
	}

	open := model.engine.Controller().ConversationID()
	for _, entry := range model.entries {
		id := entry.Conversation.ID
		if _, known := model.seen[id]; !known || id == open {
			model.seen[id] = entry.Conversation.LastActivity()
		}
	}

	model.cursor = min(model.cursor, max(0, len(model.entries)-1))
	if !model.selectedID.IsZero() {
		for index, entry := range model.entries {
			if entry.Conversation.ID == model.selectedID {
				model.cursor = index
				break
			}
		}
	}
	if model.cursor < len(model.entries) {
		model.selectedID = model.entries[model.cursor].Conversation.ID
	}
	model.ensureCursorVisible()
}

// refresh re-renders the roster entries and the message pane from
// engine state and keeps the composer in step with the controller.
func (model *Model) refresh() {
	model.rebuildEntries()

	controller := model.engine.Controller()
	if text := controller.Composer().Text(); model.composer.Value() != text {
		model.composer.SetValue(text)
	}

	store := controller.Store()
	if _, ok := store.Find(model.selectedMessage); !ok {
		model.selectedMessage = ref.MessageID{}
	}
	model.pane.setContent(renderMessages(store.Buckets(), messageView{
		theme:    model.theme,
		width:    model.pane.viewport.Width,
		self:     model.engine.Self().ID,
		location: model.location,
		selected: model.selectedMessage,
		pending:  store.HasPendingEdit,
	}))
	if store.TakeScrollToBottom() {
		model.pane.viewport.GotoBottom()
	}
}

func (model Model) rosterWidth() int {
	return max(rosterWidthMin, min(rosterWidthMax, model.width/3))
}

// contentHeight is the height above the status bar.
func (model Model) contentHeight() int {
	return max(0, model.height-1)
}

// inMessagePane reports whether screen column x is over the message
// pane.
func (model Model) inMessagePane(x int) bool {
	return x > model.rosterWidth()
}

func (model *Model) updatePaneSizes() {
	messageWidth := max(0, model.width-model.rosterWidth()-2)
	// Header, typing line, composer separator, composer.
	messageHeight := max(0, model.contentHeight()-3-composerHeight)
	model.pane.setSize(messageWidth, messageHeight)
	model.composer.SetWidth(max(1, model.width-model.rosterWidth()-1))
	model.filter.Width = max(1, model.rosterWidth()-4)
	model.ensureCursorVisible()
}

// View implements tea.Model.
func (model Model) View() string {
	if !model.ready {
		return "Loading…"
	}

	height := model.contentHeight()
	divider := lipgloss.NewStyle().Foreground(model.theme.BorderColor).
		Render(strings.TrimSuffix(strings.Repeat("│\n", height), "\n"))

	body := lipgloss.JoinHorizontal(lipgloss.Top,
		model.renderRosterPane(),
		divider,
		model.renderConversationPane(),
	)
	return body + "\n" + model.renderStatusBar()
}

func (model Model) renderRosterPane() string {
	width := model.rosterWidth()
	height := model.contentHeight()
	pane := lipgloss.NewStyle().Width(width).Height(height).MaxHeight(height)

	var lines []string
	if model.focusRegion == FocusFilter || model.filter.Value() != "" {
		lines = append(lines, ansi.Truncate(model.filter.View(), width, ""))
	} else {
		lines = append(lines, model.renderTabs())
	}

	engineRoster := model.engine.Roster()
	if len(model.entries) == 0 {
		empty := "No conversations"
		switch {
		case model.filter.Value() != "":
			empty = "No matches"
		case engineRoster.Loading(chat.KindGroup) || engineRoster.Loading(chat.KindPrivate):
			empty = model.spinner.View() + " loading"
		}
		lines = append(lines, lipgloss.NewStyle().Foreground(model.theme.FaintText).Render(empty))
		return pane.Render(strings.Join(lines, "\n"))
	}

	now := model.clock.Now()
	open := model.engine.Controller().ConversationID()
	end := min(len(model.entries), model.scrollOffset+model.rosterRows())
	for index := model.scrollOffset; index < end; index++ {
		entry := model.entries[index]
		seen := model.seen[entry.Conversation.ID]
		lines = append(lines, renderRosterRow(entry, rosterRow{
			theme:    model.theme,
			width:    width,
			now:      now,
			selected: index == model.cursor && (model.focusRegion == FocusRoster || model.focusRegion == FocusFilter),
			unread:   entry.Conversation.ID != open && entry.Conversation.LastActivity().After(seen),
		}))
	}
	return pane.Render(strings.Join(lines, "\n"))
}

func (model Model) renderTabs() string {
	active := lipgloss.NewStyle().Foreground(model.theme.HeaderForeground).Bold(true).Underline(true)
	inactive := lipgloss.NewStyle().Foreground(model.theme.FaintText)
	groups, private := inactive.Render("1 Groups"), inactive.Render("2 Private")
	if model.activeTab == TabGroups {
		groups = active.Render("1 Groups")
	} else {
		private = active.Render("2 Private")
	}
	return groups + "  " + private
}

func (model Model) renderConversationPane() string {
	width := max(1, model.width-model.rosterWidth()-1)
	height := model.contentHeight()
	pane := lipgloss.NewStyle().Width(width).Height(height).MaxHeight(height)
	faint := lipgloss.NewStyle().Foreground(model.theme.FaintText)
	controller := model.engine.Controller()

	placeholder := func(text string) string {
		return pane.Render(lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, faint.Render(text)))
	}
	switch controller.State() {
	case conversation.StateClosed, conversation.StateClosing:
		return placeholder("Select a conversation")
	case conversation.StateJoining:
		if err := controller.Err(); err != nil {
			return placeholder(fmt.Sprintf("Could not join: %v\nRetrying when the connection returns", err))
		}
		return placeholder(model.spinner.View() + " Joining " + controller.Title())
	}

	header := lipgloss.NewStyle().Foreground(model.theme.HeaderForeground).Bold(true).Render(controller.Title())
	if controller.Kind() == chat.KindGroup {
		header += faint.Render(fmt.Sprintf(" · %d members", len(controller.Members())))
	}
	cursor := controller.Cursor()
	switch {
	case controller.Suspended():
		header += lipgloss.NewStyle().Foreground(model.theme.StatusReconnecting).Render(" · offline")
	case cursor.IsLoadingOlder:
		header += faint.Render(" · " + model.spinner.View() + " loading older")
	}

	var messages string
	if controller.Store().IsEmpty() {
		messages = lipgloss.Place(model.pane.viewport.Width+1, model.pane.viewport.Height,
			lipgloss.Center, lipgloss.Center, faint.Render("No messages yet. Say hello!"))
	} else {
		scrollbar := renderScrollbar(model.theme, model.pane.viewport.Height,
			model.pane.ScrollHeight(), model.pane.viewport.Height, model.pane.ScrollTop(),
			model.focusRegion == FocusMessages, cursor.HasMore)
		messages = lipgloss.JoinHorizontal(lipgloss.Top, model.pane.viewport.View(), scrollbar)
	}

	typingLine := faint.Italic(true).Render(typing.Summary(controller.TypingNames()))
	separator := lipgloss.NewStyle().Foreground(model.theme.BorderColor).Render(strings.Repeat("─", width))
	if _, editing := controller.Composer().Editing(); editing {
		label := lipgloss.NewStyle().Foreground(model.theme.EditedMarker).Render(" editing · esc to cancel ")
		separator = ansi.Truncate(separator, 2, "") + label +
			lipgloss.NewStyle().Foreground(model.theme.BorderColor).Render(strings.Repeat("─", max(0, width-2-ansi.StringWidth(label))))
	}

	return pane.Render(strings.Join([]string{
		ansi.Truncate(header, width, "…"),
		messages,
		ansi.Truncate(typingLine, width, "…"),
		separator,
		model.composer.View(),
	}, "\n"))
}

func (model Model) renderStatusBar() string {
	var connection string
	if model.engine.Channel().Connected() {
		connection = lipgloss.NewStyle().Foreground(model.theme.StatusConnected).Render("● connected")
	} else {
		connection = lipgloss.NewStyle().Foreground(model.theme.StatusReconnecting).
			Render(model.spinner.View() + " reconnecting")
	}

	text := model.status
	style := lipgloss.NewStyle().Foreground(model.theme.NormalText)
	switch {
	case text == "":
		text = model.helpLine()
		style = lipgloss.NewStyle().Foreground(model.theme.HelpText)
	case model.statusLevel >= slog.LevelError:
		style = style.Foreground(model.theme.StatusError)
	case model.statusLevel >= slog.LevelWarn:
		style = style.Foreground(model.theme.StatusWarning)
	}

	available := max(0, model.width-ansi.StringWidth(connection)-2)
	return connection + "  " + style.Render(ansi.Truncate(text, available, "…"))
}

// helpLine lists the most useful bindings for the focused region.
func (model Model) helpLine() string {
	var bindings []key.Binding
	switch model.focusRegion {
	case FocusRoster:
		bindings = []key.Binding{model.keys.Open, model.keys.TabGroups, model.keys.TabPrivate,
			model.keys.FilterActivate, model.keys.FocusNext, model.keys.Quit}
	case FocusFilter:
		bindings = []key.Binding{model.keys.Open, model.keys.FilterClear}
	case FocusMessages:
		bindings = []key.Binding{model.keys.Up, model.keys.Down, model.keys.Edit, model.keys.Delete,
			model.keys.PrivateChat, model.keys.Compose, model.keys.LeaveGroup, model.keys.Quit}
	case FocusComposer:
		bindings = []key.Binding{model.keys.Submit, model.keys.Newline, model.keys.Cancel, model.keys.FocusNext}
	}
	parts := make([]string, 0, len(bindings))
	for _, binding := range bindings {
		help := binding.Help()
		parts = append(parts, help.Key+" "+help.Desc)
	}
	return strings.Join(parts, " · ")
}
