package advice

import (
	"fmt"

	"bmiadvisor/internal/bmi"
)

// Ответы модели всегда запрашиваются на японском языке в формате Markdown.

const healthPromptTemplate = `ユーザーの身長: %scm、体重: %skg、年齢: %s歳、BMI: %s (%s)。この情報から健康状態を判定し、日本語で簡潔なアドバイスをマークダウン形式で提供してください。アドバイスは励ましを交え、箇条書きで具体的な生活改善策を提案。`

const foodPromptTemplate = `以下の画像を確認し、それが食べ物かどうかを判定してください。食べ物の場合、ユーザーの身長: %scm、体重: %skg、年齢: %s歳、BMI: %s (%s)を考慮して、その食べ物が健康に適しているか、日本語でマークダウン形式のアドバイスを提供。箇条書きで励ましと代替案を提案。食べ物でない場合はその旨を通知。`

// HealthPrompt промпт для общего совета по здоровью.
func HealthPrompt(m bmi.Measurement, r bmi.Result) string {
	return fmt.Sprintf(healthPromptTemplate, m.HeightCm, m.WeightKg, m.AgeYears, r.String(), r.Category.Label())
}

// FoodPrompt промпт для оценки блюда на фото: сначала модель решает,
// еда ли это, и только потом оценивает её с учётом ИМТ.
func FoodPrompt(m bmi.Measurement, r bmi.Result) string {
	return fmt.Sprintf(foodPromptTemplate, m.HeightCm, m.WeightKg, m.AgeYears, r.String(), r.Category.Label())
}
