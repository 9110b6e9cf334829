package workbook

import (
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Issue is an enumerated validation issue attached to a cell. The comment
// text on the cell is only the serialization; the set of issues is the source
// of truth.
type Issue string

const (
	IssueVendorNotFound    Issue = "Vendor not found"
	IssueEntityNotFound    Issue = "Entity not found at Database"
	IssueContainerNotFound Issue = "Container number not found"
)

const (
	CommentAuthor    = "COSA Validation System"
	commentSeparator = ", "
	redFillColor     = "FF0000"
)

// Annotator applies and removes issue markers on cells: a red pattern fill
// plus a comment listing the issues. A cell is marked iff its issue set is
// non-empty; adding a present issue and removing an absent one are no-ops.
type Annotator struct {
	wb     *Workbook
	loaded map[string]bool
	issues map[string]map[Issue]struct{}
}

func NewAnnotator(wb *Workbook) *Annotator {
	return &Annotator{
		wb:     wb,
		loaded: map[string]bool{},
		issues: map[string]map[Issue]struct{}{},
	}
}

func (a *Annotator) Mark(sheet, cell string, issue Issue) error {
	if err := a.ensureLoaded(sheet); err != nil {
		return err
	}
	key := sheet + "!" + cell
	set, ok := a.issues[key]
	if !ok {
		set = map[Issue]struct{}{}
		a.issues[key] = set
	}
	set[issue] = struct{}{}
	return a.writeState(sheet, cell, set)
}

// Unmark removes one issue from a cell. When no issues remain, both the
// comment and the fill are cleared. Unmarking an unannotated cell still
// resets the fill, matching the defensive source behavior.
func (a *Annotator) Unmark(sheet, cell string, issue Issue) error {
	if err := a.ensureLoaded(sheet); err != nil {
		return err
	}
	key := sheet + "!" + cell
	set, ok := a.issues[key]
	if !ok {
		return a.clearStyle(sheet, cell)
	}
	delete(set, issue)
	if len(set) == 0 {
		delete(a.issues, key)
	}
	return a.writeState(sheet, cell, set)
}

// Clear drops every issue from a cell.
func (a *Annotator) Clear(sheet, cell string) error {
	if err := a.ensureLoaded(sheet); err != nil {
		return err
	}
	delete(a.issues, sheet+"!"+cell)
	return a.writeState(sheet, cell, nil)
}

func (a *Annotator) Issues(sheet, cell string) ([]Issue, error) {
	if err := a.ensureLoaded(sheet); err != nil {
		return nil, err
	}
	return sortedIssues(a.issues[sheet+"!"+cell]), nil
}

func (a *Annotator) Marked(sheet, cell string) (bool, error) {
	if err := a.ensureLoaded(sheet); err != nil {
		return false, err
	}
	return len(a.issues[sheet+"!"+cell]) > 0, nil
}

// SheetState returns the annotated cells of a sheet and their issues.
func (a *Annotator) SheetState(sheet string) (map[string][]Issue, error) {
	if err := a.ensureLoaded(sheet); err != nil {
		return nil, err
	}
	prefix := sheet + "!"
	out := map[string][]Issue{}
	for key, set := range a.issues {
		if cell, ok := strings.CutPrefix(key, prefix); ok && len(set) > 0 {
			out[cell] = sortedIssues(set)
		}
	}
	return out, nil
}

// ensureLoaded parses pre-existing comments on a sheet into issue sets, so a
// re-validation of an already annotated document merges instead of
// duplicating.
func (a *Annotator) ensureLoaded(sheet string) error {
	if a.loaded[sheet] {
		return nil
	}
	comments, err := a.wb.File.GetComments(sheet)
	if err != nil {
		return err
	}
	for _, comment := range comments {
		set := map[Issue]struct{}{}
		for _, part := range strings.Split(commentText(comment), commentSeparator) {
			if part = strings.TrimSpace(part); part != "" {
				set[Issue(part)] = struct{}{}
			}
		}
		if len(set) > 0 {
			a.issues[sheet+"!"+comment.Cell] = set
		}
	}
	a.loaded[sheet] = true
	return nil
}

func (a *Annotator) writeState(sheet, cell string, set map[Issue]struct{}) error {
	if err := a.wb.File.DeleteComment(sheet, cell); err != nil {
		return err
	}
	if len(set) == 0 {
		return a.clearStyle(sheet, cell)
	}

	labels := make([]string, 0, len(set))
	for _, issue := range sortedIssues(set) {
		labels = append(labels, string(issue))
	}
	err := a.wb.File.AddComment(sheet, excelize.Comment{
		Cell:   cell,
		Author: CommentAuthor,
		Paragraph: []excelize.RichTextRun{
			{Text: strings.Join(labels, commentSeparator)},
		},
	})
	if err != nil {
		return err
	}
	return a.setFill(sheet, cell, true)
}

func (a *Annotator) clearStyle(sheet, cell string) error {
	return a.setFill(sheet, cell, false)
}

// setFill adds or removes the red fill while keeping the rest of the cell's
// style (alignment, fonts) intact.
func (a *Annotator) setFill(sheet, cell string, red bool) error {
	styleID, err := a.wb.File.GetCellStyle(sheet, cell)
	if err != nil {
		return err
	}
	if !red && styleID == 0 {
		return nil
	}
	base := &excelize.Style{}
	if styleID != 0 {
		base, err = a.wb.File.GetStyle(styleID)
		if err != nil {
			return err
		}
	}
	if red {
		base.Fill = excelize.Fill{Type: "pattern", Color: []string{redFillColor}, Pattern: 1}
	} else {
		base.Fill = excelize.Fill{}
	}
	merged, err := a.wb.File.NewStyle(base)
	if err != nil {
		return err
	}
	return a.wb.File.SetCellStyle(sheet, cell, cell, merged)
}

func sortedIssues(set map[Issue]struct{}) []Issue {
	out := make([]Issue, 0, len(set))
	for issue := range set {
		out = append(out, issue)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func commentText(comment excelize.Comment) string {
	if comment.Text != "" {
		return comment.Text
	}
	var b strings.Builder
	for _, run := range comment.Paragraph {
		b.WriteString(run.Text)
	}
	return b.String()
}
