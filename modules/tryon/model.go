package tryon

// Category - 의류 카테고리
type Category string

const (
	CategoryTops    Category = "tops"
	CategoryBottoms Category = "bottoms"
	CategoryDresses Category = "dresses"
	CategoryCaps    Category = "caps"
	CategoryShoes   Category = "shoes"
)

// Valid - 알려진 카테고리인지
func (c Category) Valid() bool {
	switch c {
	case CategoryTops, CategoryBottoms, CategoryDresses, CategoryCaps, CategoryShoes:
		return true
	}
	return false
}

// ClothingItem - 클라이언트가 보낸 선택 의류
type ClothingItem struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Category Category `json:"category"`
	Image    string   `json:"image"` // 카탈로그 참조 이미지 경로 (예: /Images/Denim Shirt.webp)
}

// GenerationResult - 생성 성공 결과
type GenerationResult struct {
	ImageURL string `json:"generatedImageUrl"`
}

// GenerateOutfitResponse - POST /api/generate-outfit 응답
type GenerateOutfitResponse struct {
	Success           bool   `json:"success"`
	GeneratedImageURL string `json:"generatedImageUrl,omitempty"`
	Message           string `json:"message,omitempty"`
}

// HealthResponse - GET /api/health 응답
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}
