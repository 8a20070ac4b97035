package game

import (
	"encoding/base64"
	"strings"
	"unicode/utf8"

	"drawphone/internal/rotation"
)

const (
	MaxTextLength   = 280
	MaxDrawingBytes = 512 * 1024
)

// normalizeContent validates a submission for the round type and substitutes
// the blank form for empty content.
func normalizeContent(roundType rotation.RoundType, content string) (string, error) {
	if !roundType.Valid() {
		return "", internal("unknown round type "+string(roundType), nil)
	}
	if roundType == rotation.Text {
		text := strings.Join(strings.Fields(content), " ")
		if text == "" {
			return BlankText, nil
		}
		if utf8.RuneCountInString(text) > MaxTextLength {
			return "", invalidf("text must be %d characters or fewer", MaxTextLength)
		}
		return text, nil
	}
	drawing := strings.TrimSpace(content)
	if drawing == "" {
		return "", nil
	}
	if _, err := decodeImageData(drawing); err != nil {
		return "", err
	}
	return drawing, nil
}

func decodeImageData(data string) ([]byte, error) {
	header, payload, ok := strings.Cut(data, ",")
	if !ok || !strings.HasPrefix(header, "data:image/") || !strings.HasSuffix(header, ";base64") {
		return nil, invalidf("drawing must be a base64 image data URL")
	}
	if base64.StdEncoding.DecodedLen(len(payload)) > MaxDrawingBytes+3 {
		return nil, invalidf("drawing is too large")
	}
	decoded, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, invalidf("drawing must be a base64 image data URL")
	}
	if len(decoded) == 0 {
		return nil, invalidf("drawing is empty")
	}
	if len(decoded) > MaxDrawingBytes {
		return nil, invalidf("drawing is too large")
	}
	return decoded, nil
}
