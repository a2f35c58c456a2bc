package validation

import (
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-formfill/pkg/formdata"
	"github.com/goliatone/go-formfill/pkg/lang"
	"github.com/goliatone/go-formfill/pkg/layout"
)

// Component types with structural rules.
const (
	TypeFileUpload        = "FileUpload"
	TypeFileUploadWithTag = "FileUploadWithTag"
	TypeDatepicker        = "Datepicker"
)

// AttachmentSeparator joins an attachment id to its message so callers can
// tell which upload an error belongs to.
const AttachmentSeparator = "\u001F"

// Datepicker defaults applied when a component omits the attribute.
const (
	DefaultMinDate    = "1900-01-01T12:00:00.000Z"
	DefaultMaxDate    = "2100-01-01T12:00:00.000Z"
	DefaultDateFormat = "DD.MM.YYYY"
	// DateToday as minDate or maxDate resolves to the current day.
	DateToday = "today"
)

// Attachment is one uploaded file of a FileUpload component.
type Attachment struct {
	ID       string `json:"id"`
	Name     string `json:"name,omitempty"`
	Size     int64  `json:"size,omitempty"`
	Uploaded bool   `json:"uploaded,omitempty"`
	// Tags is set on FileUploadWithTag attachments.
	Tags []string `json:"tags,omitempty"`
}

// Attachments is keyed by FileUpload component id.
type Attachments map[string][]Attachment

var now = time.Now

// FormComponents runs the per type structural rules on the pages in order.
func FormComponents(attachments Attachments, layouts layout.Layouts, order []string, fd formdata.FormData, t lang.Translator, hidden []string) Validations {
	out := make(Validations)
	for _, name := range pagesInOrder(layouts, order) {
		if lv := FormComponentsForLayout(attachments, layouts[name], fd, t, hidden); len(lv) > 0 {
			out[name] = lv
		}
	}
	return out
}

// FormComponentsForLayout checks attachment counts of FileUpload components
// and the value of Datepicker components on one page.
func FormComponentsForLayout(attachments Attachments, page layout.Page, fd formdata.FormData, t lang.Translator, hidden []string) LayoutValidations {
	out := make(LayoutValidations)
	hiddenIDs := hiddenSet(hidden)
	for _, c := range page.Components() {
		if hiddenIDs[c.ID] {
			continue
		}
		switch {
		case strings.EqualFold(c.Type, TypeFileUpload):
			if !attachmentsValid(attachments, c) {
				out.addError(c.ID, simpleBinding, attachmentCountMessage(c, t))
			}
		case strings.EqualFold(c.Type, TypeFileUploadWithTag):
			if !attachmentsValid(attachments, c) {
				out.addError(c.ID, simpleBinding, attachmentCountMessage(c, t))
				continue
			}
			tagTitle := strings.ToLower(c.TextResourceBindings["tagTitle"])
			for _, attachment := range attachments[c.ID] {
				if len(attachment.Tags) > 0 {
					continue
				}
				message := fmt.Sprintf("%s%s%s %s.", attachment.ID, AttachmentSeparator, translate(t, KeyMissingTag), tagTitle)
				out.addError(c.ID, simpleBinding, message)
			}
		case strings.EqualFold(c.Type, TypeDatepicker):
			binding := c.Binding(simpleBinding)
			if binding == "" {
				continue
			}
			minDate, maxDate := c.DateBounds()
			for _, message := range DatepickerErrors(fd[binding], minDate, maxDate, c.Format(), t) {
				out.addError(c.ID, simpleBinding, message)
			}
		}
	}
	return out
}

func attachmentCountMessage(c *layout.Component, t lang.Translator) string {
	return fmt.Sprintf("%s %d %s",
		translate(t, KeyFileNumberPrefix),
		c.MinNumberOfAttachments(),
		translate(t, KeyFileNumberSuffix))
}

func attachmentsValid(attachments Attachments, c *layout.Component) bool {
	required := c.MinNumberOfAttachments()
	return required == 0 || len(attachments[c.ID]) >= required
}

var dateLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"}

// DatepickerErrors validates a stored date value. An empty value passes; a
// value that does not parse reports the expected display format; otherwise
// the date must fall within [minDate, maxDate] compared by calendar day.
func DatepickerErrors(value, minDate, maxDate, format string, t lang.Translator) []string {
	if value == "" {
		return nil
	}
	if format == "" {
		format = DefaultDateFormat
	}
	date, ok := parseDate(value)
	if !ok {
		return []string{translate(t, KeyInvalidDate, format)}
	}
	lower, ok := boundDate(minDate, DefaultMinDate)
	if ok && date.Before(lower) {
		return []string{translate(t, KeyMinDateExceeded)}
	}
	upper, ok := boundDate(maxDate, DefaultMaxDate)
	if ok && date.After(upper) {
		return []string{translate(t, KeyMaxDateExceeded)}
	}
	return nil
}

func boundDate(value, fallback string) (time.Time, bool) {
	switch {
	case value == "":
		value = fallback
	case strings.EqualFold(value, DateToday):
		return day(now()), true
	}
	return parseDate(value)
}

func parseDate(value string) (time.Time, bool) {
	for _, l := range dateLayouts {
		if parsed, err := time.Parse(l, value); err == nil {
			return day(parsed), true
		}
	}
	return time.Time{}, false
}

func day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
