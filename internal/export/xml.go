// Package export renders a user's feedback as an XML document.
package export

import (
	"fmt"
	"strconv"

	"github.com/beevik/etree"

	"github.com/Dan9191/feedback-app/internal/models"
)

// FeedbackXML builds <feedback username="..."><entry id="..."><title/><content/></entry>...</feedback>
func FeedbackXML(user *models.User, items []models.Feedback) ([]byte, error) {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	root := doc.CreateElement("feedback")
	root.CreateAttr("username", user.Username)
	root.CreateAttr("count", strconv.Itoa(len(items)))

	for _, fb := range items {
		entry := root.CreateElement("entry")
		entry.CreateAttr("id", strconv.FormatInt(fb.ID, 10))
		entry.CreateElement("title").SetText(fb.Title)
		entry.CreateElement("content").SetText(fb.Content)
	}

	doc.Indent(2)
	out, err := doc.WriteToBytes()
	if err != nil {
		return nil, fmt.Errorf("failed to write XML: %w", err)
	}
	return out, nil
}
