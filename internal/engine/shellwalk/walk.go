// Package shellwalk decomposes an arbitrary shell command string into
// its ordered list of simple commands — pipes, sequences, logical
// operators, subshells, and command substitutions are all descended
// into; quoting is honoured; redirects are discarded. Never executes or
// interprets the input, and never panics on adversarial input.
package shellwalk

import (
	"strings"

	"mvdan.cc/sh/v3/syntax"
)

// SimpleCommand is one program invocation found inside a decomposed
// shell string: the command name plus its argv, already joined with
// single spaces for classification.
type SimpleCommand struct {
	Command string
	Args    []string
}

// Decompose parses input as a shell command line and returns its simple
// commands in document order (pre-order AST traversal). Classification
// downstream is order-insensitive, but the order itself is still
// deterministic and reproducible.
//
// Empty input, syntactically invalid input, and input that parses but
// contains no command yield a nil slice — never an error, never a
// panic. The parser is never handed anything for execution; this
// function only reads the string as text.
func Decompose(input string) (commands []SimpleCommand) {
	defer func() {
		if recover() != nil {
			commands = nil
		}
	}()

	if strings.TrimSpace(input) == "" {
		return nil
	}

	parser := syntax.NewParser(syntax.Variant(syntax.LangBash))
	f, err := parser.Parse(strings.NewReader(input), "")
	if err != nil || f == nil {
		return nil
	}

	syntax.Walk(f, func(node syntax.Node) bool {
		call, ok := node.(*syntax.CallExpr)
		if !ok || len(call.Args) == 0 {
			return true
		}
		args := make([]string, len(call.Args))
		for i, w := range call.Args {
			args[i] = extractWord(w)
		}
		commands = append(commands, SimpleCommand{
			Command: strings.Join(args, " "),
			Args:    args,
		})
		return true
	})

	return commands
}

// extractWord reconstructs a word's literal text. Parts that cannot be
// statically known — parameter expansions, command substitutions,
// arithmetic, process substitutions — are omitted entirely from the
// reconstructed word rather than replaced with a placeholder: the
// resulting word reflects only what classification can safely reason
// about. Any inner command inside a $(...) or backtick substitution is
// still yielded separately by the top-level Walk in Decompose, since it
// is itself a CallExpr node in the AST.
func extractWord(word *syntax.Word) string {
	var b strings.Builder
	for _, part := range word.Parts {
		b.WriteString(extractWordPart(part))
	}
	return b.String()
}

func extractWordPart(part syntax.WordPart) string {
	switch p := part.(type) {
	case *syntax.Lit:
		return p.Value
	case *syntax.SglQuoted:
		return p.Value
	case *syntax.DblQuoted:
		var b strings.Builder
		for _, inner := range p.Parts {
			b.WriteString(extractWordPart(inner))
		}
		return b.String()
	case *syntax.ExtGlob:
		return p.Pattern.Value
	case *syntax.BraceExp:
		var parts []string
		for _, elem := range p.Elems {
			parts = append(parts, extractWord(elem))
		}
		return strings.Join(parts, ",")
	default:
		// ParamExp, CmdSubst, ArithmExp, ProcSubst, and anything else
		// cannot be statically expanded: omit from the reconstructed
		// word per spec.
		return ""
	}
}
