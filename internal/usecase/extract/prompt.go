package extract

import (
	"fmt"
	"sort"
	"strings"

	"github.com/kitaq-care/soudan/internal/domain/schema"
)

// systemPrompt renders the extraction instruction for one schema:
// recognized dimensions, alias canonicalization, few-shot examples, and
// the strict JSON output contract.
func systemPrompt(s schema.Schema) string {
	var b strings.Builder

	b.WriteString("あなたは福祉サービス検索の専門家です。\n")
	b.WriteString("ユーザーの質問から以下の情報を抽出してください:\n\n")

	for _, d := range s.Dimensions {
		fmt.Fprintf(&b, "- %s: %s\n", d.Name, d.Description)
	}

	aliases := aliasLines(s)
	if len(aliases) > 0 {
		b.WriteString("\n【別名→正式名称 変換リスト】\n")
		b.WriteString("一般的な呼び方を正式名称に変換してください:\n")
		for _, line := range aliases {
			b.WriteString(line)
			b.WriteByte('\n')
		}
	}

	b.WriteString(`
【抽出ルール】
1. 質問に含まれる情報のみを抽出し、推測で値を補わない
2. 各値に 0 から 1 の confidence を付ける（確実なら 0.9、曖昧なら 0.3 など）
3. 質問が曖昧で検索条件を特定できない場合は ambiguous を true にし、
   clarification に利用者へ確認する質問を日本語で入れる
4. 「について」「詳細」「教えて」などの質問表現は値に含めない

以下のJSON形式のみで返答してください。説明文は一切含めないでください:
{"dimensions":{"<dimension名>":{"value":"<抽出値>","confidence":0.0}},"ambiguous":false,"clarification":null}
`)

	if len(s.FewShot) > 0 {
		b.WriteString("\n【例】\n")
		for _, ex := range s.FewShot {
			fmt.Fprintf(&b, "入力: %s\n出力: %s\n", ex.Input, ex.Output)
		}
	}

	return b.String()
}

// reformatInstruction is appended after a parse failure.
const reformatInstruction = "\n\n【重要】前回の返答はJSONとして解析できませんでした。" +
	"コードブロックや説明文を付けず、指定したJSON構造のみを1行で返してください。"

// aliasLines renders the alias tables deterministically.
func aliasLines(s schema.Schema) []string {
	var lines []string
	for _, d := range s.Dimensions {
		if len(d.Aliases) == 0 {
			continue
		}
		keys := make([]string, 0, len(d.Aliases))
		for k := range d.Aliases {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			lines = append(lines, fmt.Sprintf("- 「%s」→「%s」", k, d.Aliases[k]))
		}
	}
	return lines
}
