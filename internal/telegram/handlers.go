package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/gookit/slog"

	"nutribot/internal/auth"
	"nutribot/internal/gateway"
	"nutribot/internal/notify"
	"nutribot/internal/profile"
)

const helpText = `I am your nutrition assistant. Talk to me, or use:
/login <email> <password> — sign in
/register <email> <password> [name] — create an account
/logout — sign out
/whoami — current account
/resetpassword <email> — request a password reset
/new [title] — start a new chat
/chats — list chats, /open <n> — switch, /delete — delete current
/profile — show the care profile, /set <field> <value> — edit it
/resetprofile — clear the profile
/language <code> — reply language, /languages — supported ones
/notifications — toggle the daily meal reminder
/dismiss — clear any pending notifications
/translate <lang> <text> — translate text
/detect <text> — detect the language of text
/rag <question> — ask the knowledge base (send a document to extend it)
/mealplan — generate a meal plan, /mealplanpdf — same as PDF
/calories <age> <weight> <height> <gender> <activity> — caloric needs
/recommend — food recommendations, /example — prediction input example`

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	rawArgs := strings.TrimSpace(msg.CommandArguments())
	args := strings.Fields(rawArgs)

	switch msg.Command() {
	case "start":
		if b.deps.Prefs.IsFirstTime() {
			if err := b.dialogs.Alert(ctx, notify.DialogOptions{
				Title:      "Welcome!",
				Message:    "I help you plan meals and answer nutrition questions for elder care.",
				ButtonText: "Got it",
			}); err != nil {
				slog.Warnf("intro alert not shown: %v", err)
			}
			b.sendMessage(chatID, helpText)
			if err := b.deps.Prefs.SetIntroSeen(); err != nil {
				slog.Errorf("failed to persist intro flag: %v", err)
			}
			return
		}
		b.sendMessage(chatID, "Welcome back. Type a question or see /help.")

	case "help":
		b.sendMessage(chatID, helpText)

	case "register":
		if len(args) < 2 {
			b.sendMessage(chatID, "Usage: /register <email> <password> [name]")
			return
		}
		req := gateway.RegisterRequest{Email: args[0], Password: args[1]}
		if len(args) > 2 {
			req.FullName = strings.Join(args[2:], " ")
		}
		res := b.deps.Session.Register(ctx, req)
		if !res.Success {
			b.toasts.Error("Registration failed", res.Error)
			return
		}
		b.toasts.Success("Account created", "You are registered and logged in.")

	case "login":
		if len(args) != 2 {
			b.sendMessage(chatID, "Usage: /login <email> <password>")
			return
		}
		res := b.deps.Session.Login(ctx, args[0], args[1])
		if !res.Success {
			b.toasts.Error("Login failed", res.Error)
			return
		}
		name := args[0]
		if u := b.deps.Session.User(); u != nil && u.FullName != "" {
			name = u.FullName
		}
		b.toasts.Success("Logged in", "Hello, "+name+"!")

	case "logout":
		confirmed, err := b.dialogs.Confirm(ctx, notify.DialogOptions{
			Title:   "Log out?",
			Message: "You will need your credentials to sign in again.",
		})
		if err != nil || !confirmed {
			return
		}
		b.deps.Session.Logout()
		b.toasts.Info("Logged out", "")

	case "whoami":
		u := b.deps.Session.User()
		if u == nil {
			b.sendMessage(chatID, "Not logged in.")
			return
		}
		b.sendMessage(chatID, fmt.Sprintf("%s <%s>", u.FullName, u.Email))

	case "resetpassword":
		if len(args) != 1 {
			b.sendMessage(chatID, "Usage: /resetpassword <email>")
			return
		}
		res := b.deps.Session.ResetPassword(ctx, args[0])
		if !res.Success {
			b.toasts.Error("Reset failed", res.Error)
			return
		}
		b.toasts.Success("Reset requested", "Check the inbox of "+args[0]+".")

	case "new":
		c := b.deps.Chats.CreateConversation(rawArgs)
		b.toasts.Success("New chat", c.Title)

	case "chats":
		convs := b.deps.Chats.Conversations()
		if len(convs) == 0 {
			b.sendMessage(chatID, "No chats yet. Just send me a message.")
			return
		}
		var bld strings.Builder
		bld.WriteString("Your chats (newest first):\n")
		for i, c := range convs {
			bld.WriteString(fmt.Sprintf("%d. %s (%d messages)\n", i+1, c.Title, len(c.Messages)))
		}
		bld.WriteString("Switch with /open <n>.")
		b.sendMessage(chatID, bld.String())

	case "open":
		if len(args) != 1 {
			b.sendMessage(chatID, "Usage: /open <n>")
			return
		}
		n, err := strconv.Atoi(args[0])
		convs := b.deps.Chats.Conversations()
		if err != nil || n < 1 || n > len(convs) {
			b.sendMessage(chatID, "No such chat, see /chats.")
			return
		}
		b.deps.Chats.SetCurrentConversation(convs[n-1].ID)
		b.toasts.Info("Switched chat", convs[n-1].Title)

	case "delete":
		cur, ok := b.deps.Chats.Current()
		if !ok {
			b.sendMessage(chatID, "No chat selected, see /chats.")
			return
		}
		confirmed, err := b.dialogs.Confirm(ctx, notify.DialogOptions{
			Title:       "Delete chat?",
			Message:     cur.Title,
			Type:        notify.TypeError,
			ConfirmText: "Delete",
		})
		if err != nil || !confirmed {
			return
		}
		b.deps.Chats.DeleteConversation(cur.ID)
		b.toasts.Success("Chat deleted", cur.Title)

	case "profile":
		b.sendMessage(chatID, formatProfile(b.deps.Profile.Profile()))

	case "set":
		if len(args) < 2 {
			b.sendMessage(chatID, "Usage: /set <field> <value>\nFields: name, gender, ageRange, region, healthConditions, medications, dietaryPreferences, allergies (lists are comma-separated)")
			return
		}
		field := args[0]
		value := strings.TrimSpace(strings.TrimPrefix(rawArgs, field))
		var err error
		switch field {
		case "healthConditions", "medications", "dietaryPreferences", "allergies":
			err = b.deps.Profile.UpdateField(field, splitList(value))
		default:
			err = b.deps.Profile.UpdateField(field, value)
		}
		if err != nil {
			b.toasts.Error("Profile not updated", err.Error())
			return
		}
		b.toasts.Success("Profile updated", field)

	case "resetprofile":
		confirmed, err := b.dialogs.Confirm(ctx, notify.DialogOptions{
			Title:       "Reset profile?",
			Message:     "All care profile fields will be cleared.",
			Type:        notify.TypeError,
			ConfirmText: "Reset",
		})
		if err != nil || !confirmed {
			return
		}
		if err := b.deps.Profile.Reset(); err != nil {
			b.toasts.Error("Reset failed", err.Error())
			return
		}
		b.toasts.Success("Profile cleared", "")

	case "language":
		if len(args) != 1 {
			b.sendMessage(chatID, "Usage: /language <code>, e.g. /language en")
			return
		}
		if err := b.deps.Prefs.SetLanguage(args[0]); err != nil {
			slog.Errorf("failed to persist language: %v", err)
		}
		b.toasts.Success("Language set", args[0])

	case "languages":
		langs, err := b.deps.Gateway.SupportedLanguages(ctx)
		if err != nil {
			b.toasts.Error("Request failed", gateway.ErrorDetail(err, "Could not load languages."))
			return
		}
		var bld strings.Builder
		bld.WriteString("Supported languages:\n")
		for _, l := range langs {
			bld.WriteString(fmt.Sprintf("- %s (%s)\n", l.Name, l.Code))
		}
		b.sendMessage(chatID, bld.String())

	case "dismiss":
		b.toasts.ClearAll()

	case "notifications":
		on, err := b.deps.Prefs.ToggleNotifications()
		if err != nil {
			slog.Errorf("failed to persist notifications flag: %v", err)
		}
		if on {
			b.toasts.Success("Reminders on", "I will nudge you about meals daily.")
		} else {
			b.toasts.Info("Reminders off", "")
		}

	case "translate":
		if len(args) < 2 {
			b.sendMessage(chatID, "Usage: /translate <target-lang> <text>")
			return
		}
		resp, err := b.deps.Gateway.Translate(ctx, gateway.TranslateRequest{
			Text:           strings.Join(args[1:], " "),
			TargetLanguage: args[0],
		})
		if err != nil {
			b.toasts.Error("Translation failed", gateway.ErrorDetail(err, "Could not translate."))
			return
		}
		b.sendMessage(chatID, resp.TranslatedText)

	case "detect":
		if rawArgs == "" {
			b.sendMessage(chatID, "Usage: /detect <text>")
			return
		}
		resp, err := b.deps.Gateway.DetectLanguage(ctx, rawArgs)
		if err != nil {
			b.toasts.Error("Detection failed", gateway.ErrorDetail(err, "Could not detect the language."))
			return
		}
		b.sendMessage(chatID, fmt.Sprintf("%s (%s), confidence %.0f%%", resp.LanguageName, resp.Language, resp.Confidence*100))

	case "rag":
		if rawArgs == "" {
			b.sendMessage(chatID, "Usage: /rag <question>")
			return
		}
		b.sendTyping(chatID)
		resp, err := b.deps.Gateway.RAGQuery(ctx, gateway.RAGRequest{Query: rawArgs, SearchWeb: true})
		if err != nil {
			b.toasts.Error("Query failed", gateway.ErrorDetail(err, "Knowledge base unavailable."))
			return
		}
		text := resp.Answer
		if len(resp.Sources) > 0 {
			text += fmt.Sprintf("\n\n(%d sources)", len(resp.Sources))
		}
		b.sendMessage(chatID, text)

	case "mealplan":
		b.handleMealPlan(ctx, chatID, false)

	case "mealplanpdf":
		b.handleMealPlan(ctx, chatID, true)

	case "calories":
		if len(args) != 5 {
			b.sendMessage(chatID, "Usage: /calories <age> <weight-kg> <height-cm> <gender> <activity>\ne.g. /calories 72 65 168 female moderate")
			return
		}
		age, err1 := strconv.Atoi(args[0])
		weight, err2 := strconv.ParseFloat(args[1], 64)
		height, err3 := strconv.ParseFloat(args[2], 64)
		if err1 != nil || err2 != nil || err3 != nil {
			b.sendMessage(chatID, "Age, weight and height must be numbers.")
			return
		}
		out, err := b.deps.Gateway.PredictCalories(ctx, gateway.PredictRequest{
			Age: age, Weight: weight, Height: height,
			Gender: args[3], ActivityLevel: args[4],
		})
		if err != nil {
			b.toasts.Error("Prediction failed", gateway.ErrorDetail(err, "Could not predict caloric needs."))
			return
		}
		b.sendMessage(chatID, formatDocument("Caloric needs", out))

	case "recommend":
		p := b.deps.Profile.Profile()
		params := gateway.RecommendationParams{Allergens: p.Allergies, MaxResults: 10}
		if len(p.DietaryPreferences) > 0 {
			params.DietaryPreference = p.DietaryPreferences[0]
		}
		out, err := b.deps.Gateway.FoodRecommendations(ctx, params)
		if err != nil {
			b.toasts.Error("Request failed", gateway.ErrorDetail(err, "Could not load recommendations."))
			return
		}
		b.sendMessage(chatID, formatDocument("Recommended foods", out))

	case "example":
		out, err := b.deps.Gateway.ExampleInput(ctx)
		if err != nil {
			b.toasts.Error("Request failed", gateway.ErrorDetail(err, "Could not load the example."))
			return
		}
		b.sendMessage(chatID, formatDocument("Example prediction input", out))

	case "allow", "disallow", "allowlist":
		b.handleAdminCommand(msg, args)

	default:
		b.sendMessage(chatID, "Unknown command, see /help.")
	}
}

func (b *Bot) handleAdminCommand(msg *tgbotapi.Message, args []string) {
	if msg.From.ID != b.deps.AdminUserID {
		b.sendMessage(msg.Chat.ID, "Admin only.")
		return
	}
	switch msg.Command() {
	case "allowlist":
		var bld strings.Builder
		bld.WriteString("Allowlist:\n")
		for _, u := range b.deps.Auth.List() {
			bld.WriteString(fmt.Sprintf("- id=%d @%s %s %s\n", u.ID, u.Username, u.FirstName, u.LastName))
		}
		b.sendMessage(msg.Chat.ID, bld.String())
	case "allow", "disallow":
		if len(args) != 1 {
			b.sendMessage(msg.Chat.ID, "Usage: /"+msg.Command()+" <user_id>")
			return
		}
		uid, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			b.sendMessage(msg.Chat.ID, "Invalid user id.")
			return
		}
		if msg.Command() == "allow" {
			err = b.deps.Auth.Upsert(auth.User{ID: uid})
		} else {
			err = b.deps.Auth.Remove(uid)
		}
		if err != nil {
			b.sendMessage(msg.Chat.ID, "Allowlist update failed: "+err.Error())
			return
		}
		b.toasts.Success("Allowlist updated", args[0])
	}
}

func (b *Bot) handleMealPlan(ctx context.Context, chatID int64, asPDF bool) {
	if !b.deps.Session.IsAuthenticated() {
		b.toasts.Warning("Not logged in", "Use /login <email> <password> first.")
		return
	}
	p := b.deps.Profile.Profile()
	if p.Name == "" {
		b.sendMessage(chatID, "Set up the care profile first: /set name <name>, /set ageRange <range>, ...")
		return
	}
	req := gateway.MealPlanRequest{
		Name:             p.Name,
		Age:              ageFromRange(p.AgeRange),
		HealthConditions: p.HealthConditions,
		PreferredFoods:   p.DietaryPreferences,
	}
	b.sendTyping(chatID)

	if !asPDF {
		plan, err := b.deps.Gateway.GenerateMealPlan(ctx, req)
		if err != nil {
			b.toasts.Error("Meal plan failed", gateway.ErrorDetail(err, "Could not generate a meal plan."))
			return
		}
		b.sendMessage(chatID, formatMealPlan(plan))
		return
	}

	data, err := b.deps.Gateway.DownloadPDF(ctx, req)
	if err != nil {
		b.toasts.Error("Meal plan failed", gateway.ErrorDetail(err, "Could not generate the PDF."))
		return
	}
	name := gateway.PDFFilename(p.Name, time.Now())
	path := filepath.Join(b.deps.DownloadDir, name)
	if err := os.MkdirAll(b.deps.DownloadDir, 0o755); err != nil {
		b.toasts.Error("Save failed", err.Error())
		return
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		b.toasts.Error("Save failed", err.Error())
		return
	}
	doc := tgbotapi.NewDocument(chatID, tgbotapi.FilePath(path))
	if _, err := b.s.Send(doc); err != nil {
		slog.Errorf("failed to send pdf: %v", err)
		b.toasts.Error("Send failed", "The PDF was saved as "+name+" but could not be sent.")
	}
}

func (b *Bot) handleDocument(ctx context.Context, msg *tgbotapi.Message) {
	if b.api == nil {
		return
	}
	file, err := b.api.GetFile(tgbotapi.FileConfig{FileID: msg.Document.FileID})
	if err != nil {
		b.toasts.Error("Upload failed", "Could not fetch the file from Telegram.")
		return
	}
	resp, err := downloadFile(ctx, file.Link(b.api.Token))
	if err != nil {
		b.toasts.Error("Upload failed", err.Error())
		return
	}
	defer func() { _ = resp.Close() }()

	progressID := b.toasts.Show("Uploading "+msg.Document.FileName, "", notify.WithDuration(0), notify.WithDismissible(false))
	out, err := b.deps.Gateway.UploadDocument(ctx, msg.Document.FileName, resp, func(pct int) {
		slog.Infof("uploading %s: %d%%", msg.Document.FileName, pct)
	})
	b.toasts.Remove(progressID)
	if err != nil {
		b.toasts.Error("Upload failed", gateway.ErrorDetail(err, "The document could not be ingested."))
		return
	}
	slog.Infof("document ingested: %v", out)
	b.toasts.Success("Document added", msg.Document.FileName+" is now part of the knowledge base.")
}

func downloadFile(ctx context.Context, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build download request: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download file: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("download file: status %d", resp.StatusCode)
	}
	return resp.Body, nil
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if v := strings.TrimSpace(p); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// ageFromRange extracts the lower bound of ranges like "70-79" or "80+".
func ageFromRange(r string) int {
	digits := strings.TrimRight(strings.SplitN(r, "-", 2)[0], "+")
	n, err := strconv.Atoi(strings.TrimSpace(digits))
	if err != nil {
		return 65
	}
	return n
}

func formatProfile(p profile.Profile) string {
	var bld strings.Builder
	bld.WriteString("Care profile:\n")
	bld.WriteString("name: " + orDash(p.Name) + "\n")
	bld.WriteString("gender: " + orDash(p.Gender) + "\n")
	bld.WriteString("ageRange: " + orDash(p.AgeRange) + "\n")
	bld.WriteString("region: " + orDash(p.Region) + "\n")
	bld.WriteString("healthConditions: " + orDash(strings.Join(p.HealthConditions, ", ")) + "\n")
	bld.WriteString("medications: " + orDash(strings.Join(p.Medications, ", ")) + "\n")
	bld.WriteString("dietaryPreferences: " + orDash(strings.Join(p.DietaryPreferences, ", ")) + "\n")
	bld.WriteString("allergies: " + orDash(strings.Join(p.Allergies, ", ")) + "\n")
	bld.WriteString("\nEdit with /set <field> <value>.")
	return bld.String()
}

func orDash(s string) string {
	if s == "" {
		return "—"
	}
	return s
}

func formatMealPlan(plan gateway.MealPlanResponse) string {
	var bld strings.Builder
	bld.WriteString(fmt.Sprintf("Meal plan for %s (~%d kcal/day)\n\n", plan.PatientName, plan.CaloricNeeds))
	bld.WriteString(formatDocument("Plan", plan.MealPlan))
	if len(plan.ShoppingList) > 0 {
		bld.WriteString("\nShopping list:\n")
		for _, item := range plan.ShoppingList {
			bld.WriteString("- " + item + "\n")
		}
	}
	if len(plan.Tips) > 0 {
		bld.WriteString("\nTips:\n")
		for _, tip := range plan.Tips {
			bld.WriteString("- " + tip + "\n")
		}
	}
	return bld.String()
}

func formatDocument(title string, doc map[string]any) string {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return title + ": (unreadable)"
	}
	return title + ":\n" + string(data)
}
