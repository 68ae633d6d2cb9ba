package models

// LawRow represents one flat row of the law corpus as exported from the source spreadsheets.
// ArticleNumber and ArticleTitle may be empty on continuation rows (merged cells).
type LawRow struct {
	RowID           string `json:"law_id"`
	LawTitle        string `json:"law_title,omitempty"`
	RegulationName  string `json:"sheet_name"`
	ChapterNumber   string `json:"chapter_num,omitempty"`
	ChapterTitle    string `json:"chapter_title,omitempty"`
	ArticleNumber   string `json:"article_num,omitempty"`
	ArticleTitle    string `json:"article_title,omitempty"`
	ParagraphNumber string `json:"paragraph_num,omitempty"`
	ParagraphText   string `json:"paragraph_content,omitempty"`
	ClauseNumber    string `json:"clause_num,omitempty"`
	ClauseText      string `json:"clause_content,omitempty"`
	ItemNumber      string `json:"item_num,omitempty"`
	ItemText        string `json:"item_content,omitempty"`
	FullText        string `json:"full_text"`
	Tags            string `json:"tag,omitempty"`
	IsActive        bool   `json:"is_active"`
}

// HasFinerContent reports whether the row carries clause or item content,
// i.e. it continues a paragraph rather than starting one.
func (r LawRow) HasFinerContent() bool {
	return r.ClauseText != "" || r.ItemText != ""
}

// RelatedLaw is one entry of the related-law panel returned with an answer.
// Title and Content always come from corpus rows, never from generated text.
type RelatedLaw struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	Anchor  string `json:"anchor,omitempty"`
}

// Guideline describes one regulation group of the corpus
type Guideline struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Guidelines is the fixed catalogue of regulation groups (one per source sheet).
var Guidelines = []Guideline{
	{ID: "협약체결 및 사업비 관리", Name: "협약체결 및 사업비 관리", Description: "협약 체결, 변경, 해약 및 사업비 관리"},
	{ID: "사업비 산정 및 정산", Name: "사업비 산정 및 정산", Description: "사업비 산정 기준 및 정산 절차"},
	{ID: "사업비 산정 및 정산_별표1", Name: "사업비 산정 및 정산 [별표1]", Description: "인건비 기준단가표"},
	{ID: "사업비 산정 및 정산_별표2", Name: "사업비 산정 및 정산 [별표2]", Description: "연구시설·장비 사용료 산정기준"},
	{ID: "사업비 산정 및 정산_별표3", Name: "사업비 산정 및 정산 [별표3]", Description: "위탁연구개발비 계상 기준"},
	{ID: "수행상황 및 정산보고", Name: "수행상황 및 정산보고", Description: "사업 수행상황 보고 및 정산"},
	{ID: "결과평가", Name: "결과평가", Description: "사업 결과평가 기준 및 절차"},
	{ID: "결과평가_별지", Name: "결과평가 [별지]", Description: "결과평가 서식"},
	{ID: "성과관리 및 활용", Name: "성과관리 및 활용", Description: "연구성과 관리 및 활용"},
	{ID: "성과관리_별지", Name: "성과관리 [별지]", Description: "성과관리 서식"},
	{ID: "점검계획", Name: "점검계획", Description: "사업 점검 계획"},
	{ID: "방발기금 운용관리규정", Name: "방송통신발전기금 운용관리규정", Description: "방발기금 운용 및 관리"},
	{ID: "정진기금 운용관리규정", Name: "정보통신진흥기금 운용관리규정", Description: "정진기금 운용 및 관리"},
	{ID: "ICT예산정책협의체 운영", Name: "ICT예산정책협의체 운영", Description: "예산정책협의체 운영 지침"},
}

// LookupGuideline returns the catalogue entry for a regulation group id
func LookupGuideline(id string) (Guideline, bool) {
	for _, g := range Guidelines {
		if g.ID == id {
			return g, true
		}
	}
	return Guideline{}, false
}
