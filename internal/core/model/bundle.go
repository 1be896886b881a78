package model

import (
	"fmt"
	"strings"
)

// Block is one named text section of an oracle or filter context.
type Block struct {
	Name string `json:"name"`
	Text string `json:"text"`
}

// Bundle is the assembled input for a single oracle or filter invocation.
// Blocks keep insertion order so rendered prompts are deterministic.
type Bundle struct {
	blocks []Block
}

func (b *Bundle) Add(name, text string) {
	b.blocks = append(b.blocks, Block{Name: name, Text: text})
}

func (b *Bundle) Get(name string) (string, bool) {
	for _, blk := range b.blocks {
		if blk.Name == name {
			return blk.Text, true
		}
	}
	return "", false
}

func (b *Bundle) Has(name string) bool {
	_, ok := b.Get(name)
	return ok
}

func (b *Bundle) Blocks() []Block {
	return b.blocks
}

func (b *Bundle) Len() int {
	return len(b.blocks)
}

// Render serializes the bundle into the prompt body format shared by every
// stage and filter: a [Name] header followed by the block text.
func (b *Bundle) Render() string {
	var sb strings.Builder
	for _, blk := range b.blocks {
		fmt.Fprintf(&sb, "[%s]\n%s\n\n", blk.Name, blk.Text)
	}
	return sb.String()
}
