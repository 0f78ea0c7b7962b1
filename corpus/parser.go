package corpus

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// Transcript files are plain text split into sections by delimiter lines: a
// run of at least 20 '=' characters opens a new section, and a label on the
// delimiter line containing "IMAGE" marks the following section as an image
// description. Shorter '='-prefixed lines and blank lines are ignored.
const (
	delimiterChar   = '='
	delimiterMinRun = 20
	imageToken      = "IMAGE"
)

// DefaultChunkSize is the target cumulative character length of a plain-text
// chunk, counting one separator per word.
const DefaultChunkSize = 512

type parser struct {
	chunkSize int
}

// parseFile reads one transcript file and returns its chunks in order.
// Image-description sections always become a single chunk; plain-text
// sections are split by words at the chunk-size threshold. ChunkIndex is a
// running counter over the whole file.
func (p *parser) parseFile(path string) ([]Chunk, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open transcript: %w", err)
	}
	defer f.Close()

	var chunks []Chunk
	var section strings.Builder
	inImageSection := false
	nextIndex := 0

	flush := func() {
		if section.Len() == 0 {
			return
		}
		chunks = append(chunks, p.splitSection(section.String(), inImageSection, path, &nextIndex)...)
		section.Reset()
	}

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())

		if isDelimiter(line) {
			flush()
			inImageSection = strings.Contains(line, imageToken)
			continue
		}
		if line == "" || strings.HasPrefix(line, string(delimiterChar)) {
			continue
		}
		section.WriteString(line)
		section.WriteString("\n")
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read transcript: %w", err)
	}
	flush()

	return chunks, nil
}

func isDelimiter(line string) bool {
	if len(line) < delimiterMinRun {
		return false
	}
	for i := 0; i < delimiterMinRun; i++ {
		if line[i] != delimiterChar {
			return false
		}
	}
	return true
}

func (p *parser) splitSection(text string, isImage bool, source string, nextIndex *int) []Chunk {
	if isImage {
		c := Chunk{
			Content:            text,
			IsImageDescription: true,
			SourceFile:         source,
			ChunkIndex:         *nextIndex,
		}
		*nextIndex++
		return []Chunk{c}
	}

	size := p.chunkSize
	if size <= 0 {
		size = DefaultChunkSize
	}

	var chunks []Chunk
	var words []string
	length := 0
	for _, word := range strings.Fields(text) {
		length += len(word) + 1
		words = append(words, word)
		if length >= size {
			chunks = append(chunks, Chunk{
				Content:    strings.Join(words, " "),
				SourceFile: source,
				ChunkIndex: *nextIndex,
			})
			*nextIndex++
			words = nil
			length = 0
		}
	}
	if len(words) > 0 {
		chunks = append(chunks, Chunk{
			Content:    strings.Join(words, " "),
			SourceFile: source,
			ChunkIndex: *nextIndex,
		})
		*nextIndex++
	}
	return chunks
}
