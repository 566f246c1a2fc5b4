package answer

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/kitaq-care/soudan/internal/domain"
	"github.com/kitaq-care/soudan/internal/domain/evidence"
)

// groundingSystemPrompt constrains generation to the supplied evidence.
const groundingSystemPrompt = `あなたは北九州市の障害福祉サービスに詳しい相談支援専門員です。
検索された情報を基に、利用者にわかりやすく丁寧に説明してください。

回答のガイドライン:
1. 検索結果の概要（該当件数、地域など）を最初に伝える
2. 各情報の基本事項を簡潔に紹介し、出典を [#番号] の形式で必ず示す
3. 問い合わせ先（電話番号）が検索結果にある場合は必ず記載する
4. 丁寧で親しみやすい言葉遣いを心がける

【厳守】検索結果に含まれない事実を述べてはいけません。
検索結果にない事業所名・住所・電話番号・サービス内容を創作することは禁止です。
検索結果が「該当なし」の場合は、該当する情報がない旨のみを伝えてください。`

// userPrompt embeds the evidence window after the question.
func userPrompt(q domain.Query, w evidence.Window) string {
	var b strings.Builder
	fmt.Fprintf(&b, "質問: %s\n\n検索結果:\n%s\n", q.RawText, w.Serialize())
	if w.Truncated {
		fmt.Fprintf(&b, "\n※全%d件中、上位%d件のみを表示しています。回答では必ず総件数（%d件）に触れてください。\n",
			w.TotalMatched, len(w.Blocks), w.TotalMatched)
	}
	b.WriteString("\n上記の検索結果のみを基に、質問に対して適切な回答を生成してください。")
	return b.String()
}

var citationRegex = regexp.MustCompile(`\[#(\d+)\]`)

// checkGrounding verifies that every [#N] citation in the answer names
// an evidence id from the window. Extra citations mean the model
// referenced evidence it was never given.
func checkGrounding(text string, evidenceIDs []string) bool {
	valid := make(map[int]bool, len(evidenceIDs))
	for _, id := range evidenceIDs {
		if n, err := strconv.Atoi(strings.TrimPrefix(id, "#")); err == nil {
			valid[n] = true
		}
	}
	for _, m := range citationRegex.FindAllStringSubmatch(text, -1) {
		n, err := strconv.Atoi(m[1])
		if err != nil || !valid[n] {
			return false
		}
	}
	return true
}
