// Package credits parses free-text artist strings into ordered artist
// credits using a configurable join-phrase grammar.
package credits

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/coda-audio/coda/internal/catalog"
)

// Config is the parsing grammar. JoinPhrases is an ordered list of
// regex-escaped alternatives; the first alternative matching at a position
// wins, so dotted/spaced variants must precede their bare prefixes.
// Default is the join phrase assumed between separately-listed artists.
type Config struct {
	JoinPhrases []string
	Default     string
}

// Compile builds the case-insensitive alternation used to split artist
// strings. Config is externally supplied so parsing stays a pure function
// of (input, config).
func (c Config) Compile() (*Parser, error) {
	if len(c.JoinPhrases) == 0 {
		return nil, fmt.Errorf("no join phrases configured")
	}
	re, err := regexp.Compile(`(?i)(` + strings.Join(c.JoinPhrases, "|") + `)`)
	if err != nil {
		return nil, fmt.Errorf("compiling join phrase grammar: %w", err)
	}
	return &Parser{re: re, defaultJoin: c.Default}, nil
}

// Parser splits artist strings along a compiled join-phrase grammar.
type Parser struct {
	re          *regexp.Regexp
	defaultJoin string
}

// DefaultJoinphrase returns the configured phrase rendered between
// separately-listed artists.
func (p *Parser) DefaultJoinphrase() string { return p.defaultJoin }

// Credit is one parsed artist credit: the display text, the join phrase
// rendered after it, its ordering index, and the already-resolved artist
// when the caller forced one.
type Credit struct {
	Credit     string
	Joinphrase string
	Index      int
	Artist     *catalog.Artist
}

// Parse splits an artist string into ordered credits. A forced joinphrase
// or index overrides the parsed value for every credit. A trailing segment
// with no following separator becomes a final credit with an empty
// joinphrase. When nothing splits, the result is a single credit carrying
// the forced artist's name, or the raw string; an empty string with no
// forced artist parses to nothing.
func (p *Parser) Parse(artistString, forcedJoinphrase string, forcedIndex *int, forcedArtist *catalog.Artist) []Credit {
	if artistString == "" && forcedArtist == nil {
		return nil
	}

	split := splitKeepingSeparators(p.re, artistString)

	var out []Credit
	for i := 0; i+1 < len(split); i += 2 {
		join := split[i+1]
		if join == "( " {
			join = "("
		}
		if join == ") " {
			join = ")"
		}
		if forcedJoinphrase != "" {
			join = forcedJoinphrase
		}
		out = append(out, Credit{
			Credit:     strings.TrimSpace(split[i]),
			Joinphrase: join,
			Index:      indexOr(len(out), forcedIndex),
			Artist:     forcedArtist,
		})
	}

	// A trailing segment with no separator after it closes the list with
	// an empty joinphrase.
	if len(split)%2 != 0 && len(split) > 1 && split[len(split)-1] != "" {
		out = append(out, Credit{
			Credit:     strings.TrimRightFunc(split[len(split)-1], unicode.IsSpace),
			Joinphrase: forcedJoinphrase,
			Index:      indexOr(len(out), forcedIndex),
			Artist:     forcedArtist,
		})
	}

	if len(out) == 0 {
		credit := artistString
		if forcedArtist != nil {
			credit = forcedArtist.Name
		}
		out = append(out, Credit{
			Credit:     credit,
			Joinphrase: forcedJoinphrase,
			Index:      indexOr(0, forcedIndex),
			Artist:     forcedArtist,
		})
	}
	return out
}

func indexOr(parsed int, forced *int) int {
	if forced != nil {
		return *forced
	}
	return parsed
}

// splitKeepingSeparators splits s on re, keeping each separator between the
// pieces: [text, sep, text, sep, ..., text]. The result always has odd
// length; leading/trailing texts may be empty.
func splitKeepingSeparators(re *regexp.Regexp, s string) []string {
	matches := re.FindAllStringIndex(s, -1)
	out := make([]string, 0, len(matches)*2+1)
	last := 0
	for _, m := range matches {
		out = append(out, s[last:m[0]], s[m[0]:m[1]])
		last = m[1]
	}
	return append(out, s[last:])
}
