package repository

// SQLiteSchema creates the corpus tables in a chatbot.db-compatible layout.
const SQLiteSchema = `
CREATE TABLE IF NOT EXISTS laws (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	law_id TEXT UNIQUE NOT NULL,
	law_title TEXT NOT NULL DEFAULT '',
	sheet_name TEXT NOT NULL,
	chapter_num TEXT,
	chapter_title TEXT,
	article_num TEXT,
	article_title TEXT,
	paragraph_num REAL,
	paragraph_content TEXT,
	clause_num REAL,
	clause_content TEXT,
	item_num TEXT,
	item_content TEXT,
	full_text TEXT NOT NULL,
	first_effective_date DATE,
	amendment_date DATE,
	is_active BOOLEAN DEFAULT 1,
	tag TEXT
);
CREATE INDEX IF NOT EXISTS idx_laws_sheet_article ON laws(sheet_name, article_num);

CREATE TABLE IF NOT EXISTS faqs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	faq_id TEXT UNIQUE NOT NULL,
	question TEXT NOT NULL,
	answer_text TEXT NOT NULL,
	policy_anchor TEXT,
	tag TEXT,
	last_reviewed_at DATE,
	source TEXT
);
CREATE INDEX IF NOT EXISTS idx_faq_question ON faqs(question);
CREATE INDEX IF NOT EXISTS idx_policy_anchor ON faqs(policy_anchor);
`

// PostgresSchema is the same layout for Postgres. Ordinals stay TEXT so
// values survive unchanged from the source sheets.
var PostgresSchema = []struct {
	Name string
	SQL  string
}{
	{
		Name: "laws table",
		SQL: `CREATE TABLE IF NOT EXISTS laws (
    id BIGSERIAL PRIMARY KEY,
    law_id TEXT UNIQUE NOT NULL,
    law_title TEXT NOT NULL DEFAULT '',
    sheet_name TEXT NOT NULL,
    chapter_num TEXT,
    chapter_title TEXT,
    article_num TEXT,
    article_title TEXT,
    paragraph_num TEXT,
    paragraph_content TEXT,
    clause_num TEXT,
    clause_content TEXT,
    item_num TEXT,
    item_content TEXT,
    full_text TEXT NOT NULL,
    first_effective_date DATE,
    amendment_date DATE,
    is_active BOOLEAN DEFAULT true,
    tag TEXT
);`,
	},
	{
		Name: "laws sheet/article index",
		SQL:  "CREATE INDEX IF NOT EXISTS idx_laws_sheet_article ON laws(sheet_name, article_num);",
	},
	{
		Name: "faqs table",
		SQL: `CREATE TABLE IF NOT EXISTS faqs (
    id BIGSERIAL PRIMARY KEY,
    faq_id TEXT UNIQUE NOT NULL,
    question TEXT NOT NULL,
    answer_text TEXT NOT NULL,
    policy_anchor TEXT,
    tag TEXT,
    last_reviewed_at DATE,
    source TEXT
);`,
	},
	{
		Name: "faq question index",
		SQL:  "CREATE INDEX IF NOT EXISTS idx_faq_question ON faqs(question);",
	},
	{
		Name: "faq anchor index",
		SQL:  "CREATE INDEX IF NOT EXISTS idx_policy_anchor ON faqs(policy_anchor);",
	},
}
