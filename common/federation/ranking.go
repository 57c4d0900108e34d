package federation

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/lyzr/chainquery/common/plan"
)

// TopN is the size of the cross-chain ranking
const TopN = 10

// ApplyTopN ranks the stream by totalMembers, largest first, and keeps the
// first TopN rows. Order among equal totalMembers is left to the store.
func ApplyTopN(p *plan.Plan) *plan.Plan {
	p.Match = nil
	p.Sort = []plan.SortKey{{Field: plan.FieldTotalMembers, Desc: true}}
	p.Skip = 0
	p.Limit = TopN
	return p
}

// ApplySearch keeps rows whose joined user name contains term (ignoring
// case) or whose nodeId equals the integer term starts with, then cuts out the
// requested page. The plan must carry the user join.
func ApplySearch(p *plan.Plan, term string, page Page) *plan.Plan {
	preds := []plan.Predicate{{
		Field:           plan.FieldUserName,
		Op:              plan.OpRegex,
		Value:           regexp.QuoteMeta(term),
		CaseInsensitive: true,
	}}
	if id, ok := parseNodeID(term); ok {
		preds = append(preds, plan.Predicate{
			Field: plan.FieldNodeID,
			Op:    plan.OpEq,
			Value: id,
		})
	}

	p.Match = &plan.Match{Any: preds}
	p.Skip = page.Skip()
	p.Limit = page.Size
	return p
}

// parseNodeID reads the integer at the front of term the way a lenient
// integer parse does: leading whitespace, an optional sign, then digits up
// to the first non-digit ("42abc" is 42, "4.2" is 4). A 0x prefix switches
// to hex. No leading digits, or a value past int64, disables the numeric
// branch.
func parseNodeID(term string) (int64, bool) {
	s := strings.TrimLeftFunc(term, unicode.IsSpace)

	sign := ""
	if s != "" && (s[0] == '+' || s[0] == '-') {
		sign, s = s[:1], s[1:]
	}

	base, isDigit := 10, isDecimal
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		base, isDigit, s = 16, isHex, s[2:]
	}

	end := 0
	for end < len(s) && isDigit(s[end]) {
		end++
	}
	if end == 0 {
		return 0, false
	}

	id, err := strconv.ParseInt(sign+s[:end], base, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

func isDecimal(c byte) bool { return '0' <= c && c <= '9' }

func isHex(c byte) bool {
	return isDecimal(c) || ('a' <= c && c <= 'f') || ('A' <= c && c <= 'F')
}
