package browser

// script to serialise the live document together with per-image runtime
// state, returned as a JSON string
const snapshotScript = `() => {
	const images = Array.from(document.querySelectorAll('img')).map((img) => {
		const style = window.getComputedStyle(img);
		return {
			src: img.getAttribute('src') || '',
			complete: img.complete,
			naturalWidth: img.naturalWidth,
			naturalHeight: img.naturalHeight,
			width: img.width,
			height: img.height,
			currentSrc: img.currentSrc || '',
			display: style.display,
			visibility: style.visibility,
			opacity: style.opacity,
		};
	});

	return JSON.stringify({
		html: document.documentElement.outerHTML,
		url: document.location.href,
		baseURI: document.baseURI,
		images: images,
	});
}`

// script to check whether axe-core is already present on the page
const axePresentScript = `() => typeof window.axe !== 'undefined' && typeof window.axe.run === 'function'`

// script to run axe-core against the whole document
const axeRunScript = `async () => {
	const results = await window.axe.run(document);
	return JSON.stringify(results);
}`

// script to scroll the index-th non-empty heading into view
const scrollToHeadingScript = `(index) => {
	const headings = Array.from(document.querySelectorAll('h1, h2, h3, h4, h5, h6'))
		.filter((h) => (h.textContent || '').trim() !== '');
	const target = headings[index];
	if (!target) {
		return false;
	}
	target.scrollIntoView({ behavior: 'smooth', block: 'start' });
	return true;
}`
