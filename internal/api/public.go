package api

import (
	"net/http"
	"net/url"
	"strings"
	"unicode"

	"coachsite/internal/booking"
	"coachsite/internal/content"
	"coachsite/internal/session"
	"coachsite/internal/settings"
	"coachsite/internal/slots"
	"coachsite/internal/validation"
)

const contactLinkText = "Hi! I'd like to learn more about your coaching services."

type dateOption struct {
	Date  string `json:"date"`
	Label string `json:"label"`
}

type contactLink struct {
	WhatsApp string          `json:"whatsapp,omitempty"`
	Email    string          `json:"email,omitempty"`
	Phone    string          `json:"phone,omitempty"`
	Social   settings.Social `json:"social"`
}

func (s *Server) handleSite(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Settings.Public(r.Context()))
}

func (s *Server) handleServices(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"services": s.Wizard.Catalog().All()})
}

func (s *Server) handleContactLink(w http.ResponseWriter, r *http.Request) {
	site := s.Settings.Public(r.Context())
	writeJSON(w, http.StatusOK, contactLink{
		WhatsApp: whatsAppLink(site.General.WhatsAppNumber, contactLinkText),
		Email:    site.General.ContactEmail,
		Phone:    site.General.Phone,
		Social:   site.Social,
	})
}

// whatsAppLink builds a wa.me deep link. Everything but digits is dropped from number.
func whatsAppLink(number, text string) string {
	digits := strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, number)
	if digits == "" {
		return ""
	}
	return "https://wa.me/" + digits + "?text=" + url.QueryEscape(text)
}

func (s *Server) handleBookingDates(w http.ResponseWriter, _ *http.Request) {
	dates := s.Wizard.Dates()
	out := make([]dateOption, 0, len(dates))
	for _, d := range dates {
		label, err := slots.FormatLongDate(d)
		if err != nil {
			label = d
		}
		out = append(out, dateOption{Date: d, Label: label})
	}
	writeJSON(w, http.StatusOK, map[string]any{"dates": out})
}

// handleBookingTimes lists the slot labels. With ?date= each slot says whether it is free.
func (s *Server) handleBookingTimes(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date != "" && s.Slots != nil {
		infos, err := s.Slots.SlotsForDate(r.Context(), date)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"date": date, "times": infos})
		return
	}

	times, err := s.Wizard.Times()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	infos := make([]slots.SlotInfo, 0, len(times))
	for _, t := range times {
		infos = append(infos, slots.SlotInfo{Time: t, Available: true})
	}
	writeJSON(w, http.StatusOK, map[string]any{"times": infos})
}

func (s *Server) handleWizardStart(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusCreated, s.Wizard.Start())
}

func (s *Server) handleWizardGet(w http.ResponseWriter, r *http.Request) {
	snap, err := s.Wizard.Get(r.PathValue("id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleWizardService(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Service string `json:"service"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	snap, err := s.Wizard.SelectService(r.PathValue("id"), req.Service)
	s.wizardReply(w, r, snap, err)
}

func (s *Server) handleWizardDateTime(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Date string `json:"date"`
		Time string `json:"time"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	snap, err := s.Wizard.SelectDateTime(r.PathValue("id"), req.Date, req.Time)
	s.wizardReply(w, r, snap, err)
}

func (s *Server) handleWizardContact(w http.ResponseWriter, r *http.Request) {
	var req booking.ContactDetails
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	snap, err := s.Wizard.SubmitContact(r.Context(), r.PathValue("id"), req)
	s.wizardReply(w, r, snap, err)
}

func (s *Server) wizardReply(w http.ResponseWriter, r *http.Request, snap booking.Snapshot, err error) {
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleWizardClose(w http.ResponseWriter, r *http.Request) {
	s.Wizard.Close(r.PathValue("id"))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePublicPosts(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	offset, err := queryInt(r, "offset")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	posts, err := s.Posts.PublicList(r.Context(), content.PostQuery{
		Category: r.URL.Query().Get("category"),
		Featured: r.URL.Query().Get("featured") == "true",
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"posts": posts})
}

func (s *Server) handlePublicPost(w http.ResponseWriter, r *http.Request) {
	post, err := s.Posts.PublicGet(r.Context(), r.PathValue("slug"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

func (s *Server) handlePublicTestimonials(w http.ResponseWriter, r *http.Request) {
	list, err := s.Testimonials.PublicList(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"testimonials": list})
}

func (s *Server) handlePublicResources(w http.ResponseWriter, r *http.Request) {
	list, err := s.Resources.PublicList(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"resources": list})
}

func (s *Server) handleResourceDownload(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	res, err := s.Resources.Download(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleContactSubmit(w http.ResponseWriter, r *http.Request) {
	var in content.ContactInput
	if err := decodeJSON(w, r, &in); err != nil {
		s.fail(w, r, err)
		return
	}
	msg, err := s.Contacts.Submit(r.Context(), in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, msg)
}

func (s *Server) handleNewsletterSubscribe(w http.ResponseWriter, r *http.Request) {
	var in content.SubscribeInput
	if err := decodeJSON(w, r, &in); err != nil {
		s.fail(w, r, err)
		return
	}
	sub, result, err := s.Newsletter.Subscribe(r.Context(), in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	status := http.StatusOK
	if result == content.SignupCreated {
		status = http.StatusCreated
	}
	writeJSON(w, status, map[string]any{"subscriber": sub, "result": result})
}

func (s *Server) handleNewsletterUnsubscribe(w http.ResponseWriter, r *http.Request) {
	if err := s.Newsletter.Unsubscribe(r.Context(), r.PathValue("email")); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// visitorID returns the visitor cookie value, issuing a new cookie when absent or malformed.
func (s *Server) visitorID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(session.VisitorCookie); err == nil && session.ValidVisitorID(c.Value) {
		return c.Value
	}
	id := session.NewVisitorID()
	http.SetCookie(w, &http.Cookie{
		Name:     session.VisitorCookie,
		Value:    id,
		Path:     "/",
		MaxAge:   int(s.Bookmarks.TTL().Seconds()),
		HttpOnly: true,
		Secure:   s.opts.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}

func (s *Server) handleBookmarksList(w http.ResponseWriter, r *http.Request) {
	ids, err := s.Bookmarks.List(r.Context(), s.visitorID(w, r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"bookmarks": ids})
}

func (s *Server) handleBookmarkAdd(w http.ResponseWriter, r *http.Request) {
	postID, err := pathID(r, "postID")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	post, err := s.Posts.Get(r.Context(), postID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if !post.Published {
		s.fail(w, r, validation.Invalid("postID", "post is not published"))
		return
	}
	ids, err := s.Bookmarks.Add(r.Context(), s.visitorID(w, r), postID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"bookmarks": ids})
}

func (s *Server) handleBookmarkRemove(w http.ResponseWriter, r *http.Request) {
	postID, err := pathID(r, "postID")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ids, err := s.Bookmarks.Remove(r.Context(), s.visitorID(w, r), postID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"bookmarks": ids})
}
