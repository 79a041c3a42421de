package markdownls

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/WaylonWalker/lspcore/pkg/lsptypes"
)

// admonitionType describes a built-in admonition block type, the
// "!!! note" / "??? tip" style callouts markdownls offers completions
// and hover documentation for.
type admonitionType struct {
	Name        string
	Description string
	Color       string
	Icon        string
}

var builtinAdmonitionTypes = []admonitionType{
	{Name: "note", Description: "Additional information or context", Color: "#448aff", Icon: "pencil"},
	{Name: "info", Description: "General information", Color: "#00b8d4", Icon: "info-circle"},
	{Name: "tip", Description: "Helpful suggestions or best practices", Color: "#00bfa5", Icon: "lightbulb"},
	{Name: "hint", Description: "Subtle guidance or clues", Color: "#00bfa5", Icon: "question-circle"},
	{Name: "success", Description: "Positive outcomes or confirmations", Color: "#00c853", Icon: "check-circle"},
	{Name: "warning", Description: "Potential issues or things to be careful about", Color: "#ff9100", Icon: "exclamation-triangle"},
	{Name: "caution", Description: "Proceed with care", Color: "#ff9100", Icon: "exclamation-circle"},
	{Name: "important", Description: "Critical information that shouldn't be missed", Color: "#00bfa5", Icon: "exclamation"},
	{Name: "danger", Description: "Actions that may cause data loss or security issues", Color: "#ff5252", Icon: "bolt"},
	{Name: "error", Description: "Error conditions or failure states", Color: "#ff5252", Icon: "times-circle"},
	{Name: "bug", Description: "Known issues or bugs to be aware of", Color: "#f50057", Icon: "bug"},
	{Name: "example", Description: "Code examples or demonstrations", Color: "#7c4dff", Icon: "code"},
	{Name: "quote", Description: "Quotations or citations", Color: "#9e9e9e", Icon: "quote-left"},
	{Name: "abstract", Description: "Summary or overview of content", Color: "#00b0ff", Icon: "clipboard-list"},
	{Name: "aside", Description: "Side notes or tangential information, optionally positioned left or right", Color: "#64dd17", Icon: "comment-alt"},
	{Name: "seealso", Description: "Pointers to related material elsewhere in the workspace", Color: "#00b8d4", Icon: "share"},
	{Name: "reminder", Description: "Something the reader should come back to", Color: "#ffd600", Icon: "bell"},
	{Name: "attention", Description: "Calls out a detail that is easy to miss", Color: "#ff9100", Icon: "asterisk"},
	{Name: "todo", Description: "Outstanding work noted inline in the document", Color: "#9e9e9e", Icon: "check-square"},
	{Name: "settings", Description: "Configuration or setup instructions", Color: "#607d8b", Icon: "cog"},
	{Name: "vsplit", Description: "Content meant to render as a side-by-side split", Color: "#7c4dff", Icon: "columns"},
	{Name: "chat", Description: "A chat message bubble", Color: "#448aff", Icon: "comment"},
	{Name: "chat-reply", Description: "A reply bubble in a chat thread", Color: "#00bfa5", Icon: "reply"},
}

var admonitionTypeMap = make(map[string]*admonitionType, len(builtinAdmonitionTypes))

var titleCaser = cases.Title(language.English)

func initAdmonitionTypeMap() {
	if len(admonitionTypeMap) > 0 {
		return
	}
	for i := range builtinAdmonitionTypes {
		admonitionTypeMap[builtinAdmonitionTypes[i].Name] = &builtinAdmonitionTypes[i]
	}
}

// getAdmonitionType returns the admonition type by name, or nil if not found.
func getAdmonitionType(name string) *admonitionType {
	initAdmonitionTypeMap()
	return admonitionTypeMap[strings.ToLower(name)]
}

// allAdmonitionTypes returns all built-in admonition types.
func allAdmonitionTypes() []admonitionType {
	return builtinAdmonitionTypes
}

// admonitionMarkerRegex matches admonition markers at the start of a line.
// Matches: !!!, ???, ???+ followed by optional space and partial type.
var admonitionMarkerRegex = regexp.MustCompile(`^(\?{3}\+?|!!!)(?:\s+(\w*))?$`)

// admonitionContext describes the admonition marker the cursor sits in.
// Collapsible and DefaultOpen mirror the "???" / "???+" distinction the
// renderer gives collapsible admonitions: collapsed by default for "???",
// expanded by default for "???+".
type admonitionContext struct {
	Marker      string
	TypePrefix  string
	MarkerStart int
	TypeStart   int
	Collapsible bool
	DefaultOpen bool
}

// getAdmonitionContext checks if the cursor is in an admonition context and
// returns details. An admonition context is when the cursor is after an
// admonition marker (!!!, ???, ???+) at the start of a line.
func getAdmonitionContext(line string, col int) (*admonitionContext, bool) {
	if col > len(line) {
		col = len(line)
	}

	textBeforeCursor := line[:col]

	trimmed := strings.TrimLeft(textBeforeCursor, " \t")
	leadingSpaces := len(textBeforeCursor) - len(trimmed)

	match := admonitionMarkerRegex.FindStringSubmatch(trimmed)
	if match == nil {
		return nil, false
	}

	marker := match[1]
	typePrefix := ""
	if len(match) > 2 {
		typePrefix = match[2]
	}

	markerStart := leadingSpaces
	typeStart := markerStart + len(marker) + 1 // +1 for the space after marker

	return &admonitionContext{
		Marker:      marker,
		TypePrefix:  typePrefix,
		MarkerStart: markerStart,
		TypeStart:   typeStart,
		Collapsible: strings.HasPrefix(marker, "?"),
		DefaultOpen: marker == "???+",
	}, true
}

// getAdmonitionCompletions returns completion items for admonition types,
// ranked by how often each type already appears across the workspace (per
// usage, keyed by type name) so the types the user actually reaches for
// surface first.
func getAdmonitionCompletions(ctx *admonitionContext, params lsptypes.CompletionParams, usage map[string]int) []lsptypes.CompletionItem {
	prefix := strings.ToLower(ctx.TypePrefix)

	var matchingTypes []admonitionType
	for _, adType := range builtinAdmonitionTypes {
		if prefix == "" || strings.HasPrefix(adType.Name, prefix) {
			matchingTypes = append(matchingTypes, adType)
		}
	}

	sort.Slice(matchingTypes, func(i, j int) bool {
		ui, uj := usage[matchingTypes[i].Name], usage[matchingTypes[j].Name]
		if ui != uj {
			return ui > uj
		}
		return matchingTypes[i].Name < matchingTypes[j].Name
	})

	items := make([]lsptypes.CompletionItem, 0, len(matchingTypes))

	for i, adType := range matchingTypes {
		titleName := titleCaser.String(adType.Name)
		docValue := fmt.Sprintf("**%s**\n\n%s\n\n*Color: %s*",
			titleName,
			adType.Description,
			adType.Color,
		)
		if count := usage[adType.Name]; count > 0 {
			docValue += fmt.Sprintf("\n\n*Used %d time(s) in this workspace*", count)
		}

		// e.g. `note "${1:Note}"`
		snippetText := fmt.Sprintf("%s \"${1:%s}\"", adType.Name, titleName)

		item := lsptypes.CompletionItem{
			Label:  adType.Name,
			Kind:   lsptypes.CompletionItemKindKeyword,
			Detail: adType.Description,
			Documentation: &lsptypes.MarkupContent{
				Kind:  lsptypes.MarkupKindMarkdown,
				Value: docValue,
			},
			InsertText:       snippetText,
			InsertTextFormat: lsptypes.InsertTextFormatSnippet,
			FilterText:       adType.Name,
			SortText:         fmt.Sprintf("%05d", i), // preserve the usage-ranked order
		}

		if ctx.TypePrefix != "" {
			item.TextEdit = &lsptypes.TextEdit{
				Range: lsptypes.Range{
					Start: lsptypes.Position{Line: params.Position.Line, Character: ctx.TypeStart},
					End:   lsptypes.Position{Line: params.Position.Line, Character: params.Position.Character},
				},
				NewText: snippetText,
			}
		}

		items = append(items, item)
	}

	return items
}

// formatAdmonitionDocumentation formats admonition type info for hover
// display. collapsible/defaultOpen reflect the marker the cursor is
// actually sitting in ("???"/"???+" vs "!!!"), and usageCount is how many
// times this type already appears across the indexed workspace.
func formatAdmonitionDocumentation(adType *admonitionType, collapsible, defaultOpen bool, usageCount int) string {
	var sb strings.Builder

	sb.WriteString("**")
	sb.WriteString(titleCaser.String(adType.Name))
	sb.WriteString("**\n\n")

	sb.WriteString(adType.Description)
	sb.WriteString("\n\n")

	sb.WriteString("*Color: ")
	sb.WriteString(adType.Color)
	sb.WriteString("*\n\n")

	if collapsible {
		state := "collapsed"
		marker := "???"
		if defaultOpen {
			state = "expanded"
			marker = "???+"
		}
		sb.WriteString(fmt.Sprintf("*Collapsible, %s by default (`%s`)*\n\n", state, marker))
	}

	if usageCount > 0 {
		sb.WriteString(fmt.Sprintf("*Used %d time(s) in this workspace*\n\n", usageCount))
	}

	marker := "!!!"
	if collapsible {
		marker = "???"
		if defaultOpen {
			marker = "???+"
		}
	}

	sb.WriteString("**Usage:**\n```markdown\n")
	sb.WriteString(fmt.Sprintf("%s %s \"Optional Title\"\n    Content goes here.\n```", marker, adType.Name))

	return sb.String()
}
