package consts

const (
	// права доступа к файлу:
	// владелец может читать и писать
	// остальные только читать
	PosixAccessRight = 0644

	IndexExtension   = ".idx"
	DataExtension    = ".dat"
	CatalogExtension = ".json"
)
