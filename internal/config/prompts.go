package config

// Built-in stage instructions. Each one is appended after the rendered
// context bundle, so it only states the task and the required output shape.

const defaultPlotPrompt = `You are the plot layer of a multi-layered story generation system.
Based on the user premise above, write a master plot for the whole story:
the premise, setting, core values and the overall story arc.
Output the master plot text only.`

const defaultBackstoryPrompt = `You are the backstory layer of a multi-layered story generation system.
Based on the master plot above, write detailed world-setting backstories:
history, places, factions, rules of the world.
Output the backstory text only.`

const defaultCharactersPrompt = `You are the character layer of a multi-layered story generation system.
Based on the master plot and backstories above, define the character roster:
for each character give a name, role, personality, motivation, and their
relationships to the other characters.
Output the character definitions only.`

const defaultChapterPrompt = `You are the chapter layer of a multi-layered story generation system.
Generate the plot for the chapter indicated above, continuing from the
previous chapter plot and intent when they are present.

Constraints:
1. The chapter plot must follow the master plot's story line.
2. Character actions and motives must match their definitions.
3. Do not contradict the world setting.
4. Describe the main events, character actions and setting changes of this
   chapter in enough detail to act as a summary of it.

Output exactly this format:

[CHAPTER_PLOT]
(the chapter plot)

[CHAPTER_INTENT]
(how the story should proceed after this chapter)`

const defaultFinalChapterPrompt = `This is the final chapter of the story.
Resolve the main story lines, pay off the major setups, show where each
character's journey ends and reflect the story's themes in the conclusion.
Leaving minor threads open is fine; the central conflict must be resolved.`

const defaultTimelinePrompt = `You are the timeline layer of a multi-layered story generation system.
From the current chapter plot above, record each character's actions and
important events with their date and time.

Rules:
1. Use "YYYY-MM-DD HH:MM" keys (for example "2023-05-15 14:30").
2. Keep every entry from the previous timeline and add this chapter's new
   events.
3. Record facts only, briefly, with no interpretation or emotion.
4. In-chapter order may differ from story chronology.
5. Include every character, even ones absent from this chapter.

Output only a valid JSON object of this shape and nothing else:

{
  "Character A": {
    "YYYY-MM-DD HH:MM": "event description"
  },
  "Character B": {
    "YYYY-MM-DD HH:MM": "event description"
  }
}`

const defaultSectionPrompt = `You are the section layer of a multi-layered story generation system.
Flesh out the current chapter plot into the next section: one scene, time
slot or event, with the main happenings, who appears, their dialogue,
actions and shifts in emotion. Keep continuity with the previous sections.

Output only a JSON object of this shape:

{
  "section_plot": "the section plot, around 500-1000 words",
  "section_intent": "a short intent for how the next section should continue, 100-200 words"
}`

const defaultParagraphPrompt = `You are the paragraph layer of a multi-layered story generation system.
Write the next paragraph of the story from the section plot above, keeping
natural continuity with the preceding paragraphs.

1. Balance dialogue, description and action.
2. Aim for 100-300 words.
3. Focus on one part of the section plot and go into detail.
4. Include character feelings and the surrounding environment.

Output exactly this format:

[PARAGRAPH]
(the paragraph text)

[PARAGRAPH_INTENT]
(a short intent for how the next paragraph should continue)`

// Filter instructions. Every filter replies with OK when the subject passes;
// anything else is treated as corrective feedback.

const defaultBackstoryFilterPrompt = `Check the subject plot and intent above against the master plot, the
backstories and the character definitions. If there is any contradiction,
point it out; if not, reply OK.`

const defaultChapterChainPrompt = `Check the causal chain across all the chapter plots above, together with
the full character timeline. If any chapter breaks cause and effect or
contradicts another chapter, point it out; if not, reply OK.`

const defaultSectionChainPrompt = `Check the causal chain across all the section plots of this chapter above.
If any section breaks cause and effect or contradicts the chapter plot,
point it out; if not, reply OK.`

const defaultStylePrompt = `Polish the style of the subject paragraph above. If it already reads well,
reply OK. Otherwise output only the corrected paragraph, nothing else.`
