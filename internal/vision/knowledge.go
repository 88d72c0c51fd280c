package vision

import (
	"fmt"
	"strings"
)

type disease struct {
	name       string
	crops      []string
	symptoms   string
	causes     string
	management string
}

var knowledgeBase = []disease{
	{
		name:       "Late Blight",
		crops:      []string{"Potato", "Tomato"},
		symptoms:   "Dark, water-soaked lesions on leaves that quickly enlarge and turn brown with a slight yellow border. White fungal growth may be visible on the underside of leaves in humid conditions.",
		causes:     "Caused by the oomycete pathogen Phytophthora infestans. Favored by cool, wet weather with high humidity.",
		management: "Use resistant varieties, apply fungicides preventatively, ensure good air circulation, avoid overhead irrigation, remove and destroy infected plants.",
	},
	{
		name:       "Powdery Mildew",
		crops:      []string{"Cucumber", "Squash", "Melon", "Grape", "Apple"},
		symptoms:   "White powdery spots on leaves and stems that eventually cover the entire surface. Leaves may yellow, curl, or die prematurely.",
		causes:     "Caused by various species of fungi. Favored by warm, dry conditions with high humidity, especially at night.",
		management: "Use resistant varieties, apply fungicides, ensure proper spacing for air circulation, avoid overhead irrigation.",
	},
	{
		name:       "Rust",
		crops:      []string{"Wheat", "Corn", "Bean", "Coffee"},
		symptoms:   "Small, round, rusty-orange to reddish-brown pustules on leaves, stems, and sometimes fruits. Severe infections cause yellowing and premature leaf drop.",
		causes:     "Caused by various species of fungi in the order Pucciniales. Favored by warm, humid conditions with extended leaf wetness.",
		management: "Use resistant varieties, apply fungicides, practice crop rotation, remove alternate hosts if applicable.",
	},
	{
		name:       "Bacterial Leaf Spot",
		crops:      []string{"Pepper", "Tomato", "Lettuce"},
		symptoms:   "Small, dark, water-soaked spots on leaves that enlarge and turn brown with a yellow halo. In severe cases, leaves may drop prematurely.",
		causes:     "Caused by various species of bacteria, including Xanthomonas and Pseudomonas. Spread by water splash, contaminated tools, and seeds.",
		management: "Use disease-free seeds and transplants, apply copper-based bactericides, avoid overhead irrigation, practice crop rotation.",
	},
	{
		name:       "Fusarium Wilt",
		crops:      []string{"Tomato", "Banana", "Cotton", "Melon"},
		symptoms:   "Yellowing and wilting of leaves, often starting on one side of the plant. Brown discoloration of vascular tissue when stem is cut lengthwise.",
		causes:     "Caused by soil-borne fungi in the Fusarium genus. Can persist in soil for many years.",
		management: "Use resistant varieties, practice crop rotation, solarize soil, use disease-free transplants, maintain optimal growing conditions.",
	},
}

const promptTemplate = `
You are an agricultural expert AI assistant helping farmers analyze crop health from images.

CONTEXT:
The farmer has uploaded an image of their %s for analysis. They want to know if there are any signs of disease, pests, or other issues affecting their crops.

CROP DISEASE KNOWLEDGE:
%s

INSTRUCTIONS:
1. Analyze the image carefully for any signs of disease, pests, nutrient deficiencies, or other issues.
2. If you identify any problems, provide a clear explanation of what you see and what it might indicate.
3. Provide practical advice that a farmer can implement.
4. Use simple, clear language that a farmer would understand.
5. If you're uncertain about anything, acknowledge your uncertainty rather than making definitive claims.
6. Format your response in a structured way with clear sections.

YOUR ANALYSIS:
`

// buildPrompt renders the analysis prompt with the full knowledge base.
func buildPrompt(cropType string) string {
	if cropType == "" {
		cropType = "crops"
	}
	var kb strings.Builder
	for _, d := range knowledgeBase {
		fmt.Fprintf(&kb, "\nDisease: %s\nAffected Crops: %s\nSymptoms: %s\nCauses: %s\nManagement: %s\n",
			d.name, strings.Join(d.crops, ", "), d.symptoms, d.causes, d.management)
	}
	return fmt.Sprintf(promptTemplate, cropType, kb.String())
}
