package schema

// Built-in domain schemas. Config may override or extend these.

// serviceTypeAliases maps colloquial service names to the canonical
// names stored in the graph.
var serviceTypeAliases = map[string]string{
	"ショートステイ":  "短期入所",
	"ショート":     "短期入所",
	"グループホーム":  "共同生活援助",
	"GH":       "共同生活援助",
	"ヘルパー":     "居宅介護",
	"訪問介護":     "居宅介護",
	"訪問ヘルパー":   "居宅介護",
	"デイサービス":   "生活介護",
	"デイ":       "生活介護",
	"通所":       "生活介護",
	"就労B":      "就労継続支援B型",
	"B型":       "就労継続支援B型",
	"就労継続B型":   "就労継続支援B型",
	"就労A":      "就労継続支援A型",
	"A型":       "就労継続支援A型",
	"就労継続A型":   "就労継続支援A型",
	"移動支援":     "同行援護",
	"ガイドヘルプ":   "同行援護",
	"外出支援":     "同行援護",
	"強度行動障害支援": "行動援護",
	"重訪":       "重度訪問介護",
	"重度訪問":     "重度訪問介護",
}

// FacilitySearch is the schema for natural-language facility search.
func FacilitySearch() Schema {
	return Schema{
		ID:    "facility_search",
		Label: "Facility",
		Dimensions: []Dimension{
			{
				Name:        "facility_name",
				Kind:        KindKeyword,
				Description: "事業所名（「〜ヘルパーセンター」「〜事業所」「〜支援センター」などの固有名詞）",
			},
			{
				Name:        "service_type",
				Kind:        KindString,
				Property:    "service_type",
				Description: "サービス種別の正式名称（短期入所、共同生活援助、就労継続支援B型など）",
				Aliases:     serviceTypeAliases,
			},
			{
				Name:        "district",
				Kind:        KindString,
				Property:    "district",
				Description: "地域。必ず「〜区」を含める（小倉北区、小倉南区、八幡西区など）",
			},
			{
				Name:        "transportation",
				Kind:        KindBool,
				Property:    "has_transportation",
				Description: "送迎サービスの有無",
			},
			{
				Name:        "keywords",
				Kind:        KindKeyword,
				Description: "サービス内容に関するキーワード（医療的ケア、土日営業など）。助詞や質問表現は含めない",
			},
		},
		KeywordFields:     []string{"name", "address"},
		NameProperty:      "name",
		RelevanceOrdering: true,
		Template: []TemplateField{
			{Label: "名称", Property: "name"},
			{Label: "法人", Property: "corporation_name"},
			{Label: "サービス種別", Property: "service_type"},
			{Label: "所在地", Property: "address"},
			{Label: "電話", Property: "phone"},
			{Label: "定員", Property: "capacity", Optional: true},
			{Label: "空き状況", Property: "availability_status", Optional: true},
		},
		FewShot: []Example{
			{
				Input:  "八幡西区でショートステイを探す",
				Output: `{"dimensions":{"service_type":{"value":"短期入所","confidence":0.9},"district":{"value":"八幡西区","confidence":0.9}},"ambiguous":false,"clarification":null}`,
			},
			{
				Input:  "みんなのhome黒崎ショートについて",
				Output: `{"dimensions":{"facility_name":{"value":"みんなのhome黒崎ショート","confidence":0.9}},"ambiguous":false,"clarification":null}`,
			},
			{
				Input:  "良い事業所は？",
				Output: `{"dimensions":{},"ambiguous":true,"clarification":"どの地域で、どのようなサービスをお探しですか？"}`,
			},
		},
	}
}

// NeedsAnalysis is the schema for retrieving services relevant to an
// assessed support need.
func NeedsAnalysis() Schema {
	return Schema{
		ID:    "needs_analysis",
		Label: "ServiceNeed",
		Dimensions: []Dimension{
			{
				Name:        "need_category",
				Kind:        KindString,
				Property:    "category",
				Description: "ニーズ分類（生活スキル、就労、金銭管理、社会参加、医療的ケアなど）",
			},
			{
				Name:        "icf_domain",
				Kind:        KindString,
				Property:    "icf_domain",
				Description: "ICF分類（心身機能、活動、参加、環境因子、個人因子）",
			},
			{
				Name:        "keywords",
				Kind:        KindKeyword,
				Description: "ヒアリング内容のキーワード（一人暮らし、貯金、通院など）",
			},
		},
		KeywordFields: []string{"name", "description"},
		NameProperty:  "name",
		Template: []TemplateField{
			{Label: "ニーズ", Property: "name"},
			{Label: "分類", Property: "category"},
			{Label: "ICF分類", Property: "icf_domain"},
			{Label: "内容", Property: "description"},
			{Label: "関連サービス", Property: "related_services", Optional: true},
		},
		FewShot: []Example{
			{
				Input:  "一人暮らしをしたいが金銭管理に不安がある",
				Output: `{"dimensions":{"need_category":{"value":"金銭管理","confidence":0.8},"keywords":{"value":"一人暮らし","confidence":0.7}},"ambiguous":false,"clarification":null}`,
			},
		},
	}
}

// GoalSuggestion is the schema for retrieving support goals matching an
// identified need.
func GoalSuggestion() Schema {
	return Schema{
		ID:    "goal_suggestion",
		Label: "SupportGoal",
		Dimensions: []Dimension{
			{
				Name:        "goal_area",
				Kind:        KindString,
				Property:    "area",
				Description: "目標領域（日常生活、就労、社会参加、健康管理など）",
			},
			{
				Name:        "term",
				Kind:        KindString,
				Property:    "term",
				Description: "期間区分（短期、長期）",
			},
			{
				Name:        "keywords",
				Kind:        KindKeyword,
				Description: "目標内容に関するキーワード",
			},
		},
		KeywordFields: []string{"title", "description"},
		NameProperty:  "title",
		Template: []TemplateField{
			{Label: "目標", Property: "title"},
			{Label: "領域", Property: "area"},
			{Label: "期間", Property: "term"},
			{Label: "内容", Property: "description"},
			{Label: "達成基準", Property: "criteria", Optional: true},
		},
		FewShot: []Example{
			{
				Input:  "就労に向けた短期目標を提案して",
				Output: `{"dimensions":{"goal_area":{"value":"就労","confidence":0.9},"term":{"value":"短期","confidence":0.8}},"ambiguous":false,"clarification":null}`,
			},
		},
	}
}

// Defaults returns the built-in schemas.
func Defaults() []Schema {
	return []Schema{FacilitySearch(), NeedsAnalysis(), GoalSuggestion()}
}
