// Package parser reads markdown deck files. A deck file is a sequence of
// cards written as prefixed blocks:
//
//	Q: What is Go?
//	A: A statically typed, compiled programming language.
//	D: easy
//	T: programming
//	---
//
// Q: and A: blocks may span multiple lines; D: (difficulty) and T: (tag,
// the card's category) are optional single-line metadata. A new Q: or a
// "---" separator ends the current card.
package parser

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/conorfennell/flashdeck/internal/domain"
)

const (
	questionPrefix   = "Q:"
	answerPrefix     = "A:"
	difficultyPrefix = "D:"
	tagPrefix        = "T:"
)

type state int

const (
	seeking state = iota
	readingQuestion
	readingAnswer
)

// ParseFile reads a deck file from the given path and extracts all cards.
func ParseFile(path string) ([]domain.Card, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return Parse(file)
}

// Parse reads deck markup from r and extracts all well-formed cards.
// Blocks with an empty question or answer are dropped, matching the
// import rules for JSON decks.
func Parse(r io.Reader) ([]domain.Card, error) {
	scanner := bufio.NewScanner(r)
	var cards []domain.Card

	var question, answer, difficulty, tag string
	var currentBlock []string
	currentState := seeking

	closeBlock := func() {
		if len(currentBlock) == 0 {
			return
		}
		content := strings.Join(currentBlock, "\n")
		switch currentState {
		case readingQuestion:
			question = content
		case readingAnswer:
			answer = content
		}
		currentBlock = nil
	}

	finishCard := func() {
		closeBlock()
		if card, err := domain.NewCard(question, answer, domain.ParseDifficulty(difficulty), tag); err == nil {
			cards = append(cards, card)
		}
		question, answer, difficulty, tag = "", "", "", ""
		currentState = seeking
	}

	stripPrefix := func(line, prefix string) string {
		content := line[len(prefix):]
		return strings.TrimPrefix(content, " ")
	}

	for scanner.Scan() {
		line := scanner.Text()

		switch {
		case line == "---":
			finishCard()
		case strings.HasPrefix(line, questionPrefix):
			if currentState != seeking { // a new question always starts a new card
				finishCard()
			}
			currentState = readingQuestion
			currentBlock = append(currentBlock, stripPrefix(line, questionPrefix))
		case strings.HasPrefix(line, answerPrefix):
			closeBlock()
			currentState = readingAnswer
			currentBlock = append(currentBlock, stripPrefix(line, answerPrefix))
		case strings.HasPrefix(line, difficultyPrefix):
			closeBlock()
			difficulty = stripPrefix(line, difficultyPrefix)
		case strings.HasPrefix(line, tagPrefix):
			closeBlock()
			tag = stripPrefix(line, tagPrefix)
		default:
			if currentState != seeking {
				currentBlock = append(currentBlock, line)
			}
		}
	}

	finishCard() // flush the last card in the file

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return cards, nil
}
