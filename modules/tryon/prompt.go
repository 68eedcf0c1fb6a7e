package tryon

import (
	"strings"

	"github.com/rs/zerolog/log"

	"tryon-server/modules/common/gemini"
)

const (
	keepUpperBody = "Keep the person's existing upper-body clothing unchanged."
	keepLowerBody = "Keep the person's existing lower-body clothing unchanged."
)

// BuildPrompt - 사용자 사진 + 선택 의류로 Gemini payload 생성
// 첨부 순서: 사용자 사진 → 선택 순서대로 의류 이미지 (찾지 못한 이미지는 건너뜀)
func BuildPrompt(photo gemini.Attachment, items []ClothingItem, resolver ImageResolver) gemini.Payload {
	attachments := make([]gemini.Attachment, 0, len(items)+1)
	attachments = append(attachments, photo)

	for _, item := range items {
		data, mime, err := resolver.Resolve(item.Image)
		if err != nil {
			log.Warn().Err(err).Str("item", item.Name).Msg("⚠️  Clothing image not found, skipping")
			continue
		}
		attachments = append(attachments, gemini.Attachment{MIMEType: mime, Data: data})
	}

	return gemini.Payload{
		Instruction: BuildInstruction(items),
		Attachments: attachments,
	}
}

// BuildInstruction - 선택 의류에 대한 지시문 (입력이 같으면 항상 같은 문자열)
func BuildInstruction(items []ClothingItem) string {
	var sb strings.Builder

	sb.WriteString("You are a professional virtual clothing try-on system. ")
	sb.WriteString("Generate a photorealistic image of the person in the FIRST image ")
	sb.WriteString("wearing the clothing items shown in the FOLLOWING image(s).\n\n")

	sb.WriteString("Selected clothing items to dress the person in:\n")
	for i, item := range items {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString("- " + item.Name + " (" + string(item.Category) + ")")
	}

	sb.WriteString("\n\nCRITICAL requirements:\n")
	sb.WriteString("- Maintain the person's EXACT facial features, body shape, skin tone, hair style, and pose from the first image.\n")
	sb.WriteString("- Fit each clothing item naturally on the person's body with realistic sizing and proportions.\n")
	sb.WriteString("- Use natural lighting that matches the original photo.\n")
	sb.WriteString("- Add proper fabric textures, shadows, and natural wrinkles on the clothing.\n")

	for _, line := range preservationLines(items) {
		sb.WriteString(line + "\n")
	}

	sb.WriteString("- Keep the original background intact.\n")
	sb.WriteString("- The result must look like an authentic photograph, not a digital composite.\n")
	sb.WriteString("- Seamlessly blend clothing onto the person's body.")

	return sb.String()
}

// preservationLines - 바뀌지 않는 신체 부위의 옷은 그대로 두라는 지시
// dresses 는 상의/하의를 모두 대체한다.
func preservationLines(items []ClothingItem) []string {
	var upper, lower bool
	for _, item := range items {
		switch item.Category {
		case CategoryTops:
			upper = true
		case CategoryBottoms:
			lower = true
		case CategoryDresses:
			upper, lower = true, true
		}
	}

	var lines []string
	if !upper {
		lines = append(lines, keepUpperBody)
	}
	if !lower {
		lines = append(lines, keepLowerBody)
	}
	return lines
}
