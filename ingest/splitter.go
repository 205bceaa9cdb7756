package ingest

import (
	"regexp"
	"strings"
)

// sectionRe matches a heading line: 1-3 marks, one space, non-empty text.
var sectionRe = regexp.MustCompile(`^#{1,3}\s+(.+)$`)

// Section is a contiguous run of text within one page, bounded by a heading
// and the next heading or end of page. The heading text is stored verbatim.
type Section struct {
	Source     string
	Heading    string
	PageNumber int
	Text       string
}

// SplitSections partitions normalized page text into sections. Pages are
// processed independently: buffering terminates and restarts at every page
// boundary, so a section never spans pages. Text preceding the first heading
// of a page has no section to belong to and is dropped.
func SplitSections(pages []string, source string) []Section {
	var sections []Section

	for pageNo, page := range pages {
		var heading string
		var buffer []string

		flush := func() {
			if heading != "" && len(buffer) > 0 {
				sections = append(sections, Section{
					Source:     source,
					Heading:    heading,
					PageNumber: pageNo + 1,
					Text:       heading + "\n" + strings.Join(buffer, "\n"),
				})
			}
			buffer = nil
		}

		for _, line := range strings.Split(page, "\n") {
			line = strings.TrimSpace(line)

			if m := sectionRe.FindStringSubmatch(line); m != nil {
				flush()
				heading = m[1]
				continue
			}
			buffer = append(buffer, line)
		}
		flush()
	}

	return sections
}
