// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package formatter

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Command names
const (
	CmdUpper      = "uppercase"
	CmdLower      = "lowercase"
	CmdCapitalize = "capitalize"
	CmdTitle      = "title"
	CmdSubstring  = "substring"
	CmdReplace    = "replace"
)

// runCommands applies every command of the chain in spec to value. The first element of the
// chain is the prefix itself and is skipped.
func (f *Formatter) runCommands(value, spec string) (string, error) {
	chain := strings.Split(spec, f.separator)[1:]
	for _, raw := range chain {
		command := strings.TrimSpace(raw)
		switch {
		case command == CmdUpper:
			value = cases.Upper(language.Und).String(value)
		case command == CmdLower:
			value = cases.Lower(language.Und).String(value)
		case command == CmdCapitalize:
			value = Capitalize(value)
		case command == CmdTitle:
			value = cases.Title(language.Und).String(value)
		case strings.HasPrefix(command, CmdSubstring):
			args, err := commandArgs(command)
			if err != nil {
				return "", err
			}
			if value, err = substring(value, args); err != nil {
				return "", fmt.Errorf("%w: %s: %w", ErrInvalidCommand, command, err)
			}
		case strings.HasPrefix(command, CmdReplace):
			args, err := commandArgs(command)
			if err != nil {
				return "", err
			}
			if len(args) < 2 {
				return "", fmt.Errorf("%w: %s requires a search and a replace argument", ErrInvalidCommand,
					command)
			}
			value = strings.ReplaceAll(value, unquote(args[0]), unquote(args[1]))
		default:
			return "", fmt.Errorf("%w: %s", ErrUnknownCommand, command)
		}
	}
	return value, nil
}

// Capitalize upper-cases the first character of value and lower-cases the rest.
func Capitalize(value string) string {
	runes := []rune(value)
	if len(runes) == 0 {
		return value
	}
	return cases.Upper(language.Und).String(string(runes[0])) + cases.Lower(language.Und).String(string(runes[1:]))
}

// commandArgs returns the trimmed, comma separated arguments between the parentheses of command.
func commandArgs(command string) ([]string, error) {
	if strings.Count(command, "(") != 1 || strings.Count(command, ")") != 1 {
		return nil, fmt.Errorf("%w: command %q must have parameters", ErrInvalidCommand, command)
	}
	inner := strings.SplitN(strings.SplitN(command, "(", 2)[1], ")", 2)[0]
	args := strings.Split(inner, ",")
	for i := range args {
		args[i] = strings.TrimSpace(args[i])
	}
	return args, nil
}

// substring slices value by rune index. Negative indexes count from the end and out of
// range indexes are clamped.
func substring(value string, args []string) (string, error) {
	runes := []rune(value)
	start, err := strconv.Atoi(args[0])
	if err != nil {
		return "", err
	}
	end := len(runes)
	if len(args) > 1 {
		if end, err = strconv.Atoi(args[1]); err != nil {
			return "", err
		}
		end = clampIndex(end, len(runes))
	}
	start = clampIndex(start, len(runes))
	if start >= end {
		return "", nil
	}
	return string(runes[start:end]), nil
}

func clampIndex(idx, length int) int {
	if idx < 0 {
		idx += length
		if idx < 0 {
			return 0
		}
	}
	if idx > length {
		return length
	}
	return idx
}

// unquote removes a matching pair of single or double quotes around arg.
func unquote(arg string) string {
	if len(arg) >= 2 {
		if (arg[0] == '"' && arg[len(arg)-1] == '"') || (arg[0] == '\'' && arg[len(arg)-1] == '\'') {
			return arg[1 : len(arg)-1]
		}
	}
	return arg
}
