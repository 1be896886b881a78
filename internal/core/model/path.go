package model

import "fmt"

// Story-level artifact keys. Layout mirrors the output tree the generator
// produces: story-wide artifacts at the root, chapter-scoped ones under
// chapters/NN (1-based, like the emitted directories).
const (
	KeyMasterPlot    = "master_plot"
	KeyBackstory     = "backstory"
	KeyCharacters    = "characters"
	KeyCompleteStory = "complete_story"
)

// Path identifies where an artifact belongs in the scope hierarchy.
// Section and Paragraph are chapter-local indices; Paragraph does NOT reset
// when the section changes, only when the chapter does.
type Path struct {
	Chapter   int
	Section   int
	Paragraph int
}

func ChapterPlotKey(n int) string {
	return fmt.Sprintf("chapters/%02d/plot", n+1)
}

func ChapterIntentKey(n int) string {
	return fmt.Sprintf("chapters/%02d/intent", n+1)
}

func TimelineKey(n int) string {
	return fmt.Sprintf("chapters/%02d/timeline", n+1)
}

func SectionPlotKey(n, m int) string {
	return fmt.Sprintf("chapters/%02d/sec_%02d/plot", n+1, m+1)
}

func SectionIntentKey(n, m int) string {
	return fmt.Sprintf("chapters/%02d/sec_%02d/intent", n+1, m+1)
}

func ParagraphTextKey(n, i int) string {
	return fmt.Sprintf("chapters/%02d/para_%03d/text", n+1, i+1)
}

func ParagraphIntentKey(n, i int) string {
	return fmt.Sprintf("chapters/%02d/para_%03d/intent", n+1, i+1)
}
